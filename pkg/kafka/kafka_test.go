package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lookup struct {
	Search string `json:"search"`
	Count  int    `json:"count"`
}

func TestEncodeMessages(t *testing.T) {
	msgs, err := EncodeMessages([]Event{
		{Key: "english", Value: lookup{Search: "hello", Count: 2}},
		{Key: "somali", Value: lookup{Search: "salaan"}},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "english", string(msgs[0].Key))
	assert.JSONEq(t, `{"search":"hello","count":2}`, string(msgs[0].Value))

	_, err = EncodeMessages([]Event{{Key: "bad", Value: make(chan int)}})
	assert.ErrorContains(t, err, `marshaling event "bad"`)
}

func TestDecodeJSON(t *testing.T) {
	got, err := DecodeJSON[lookup]([]byte(`{"search":"biyo","count":1}`))
	require.NoError(t, err)
	assert.Equal(t, lookup{Search: "biyo", Count: 1}, got)

	_, err = DecodeJSON[lookup]([]byte(`not json`))
	assert.ErrorContains(t, err, "decoding kafka message")
}
