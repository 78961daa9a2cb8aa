package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecipientsUnion(t *testing.T) {
	msg := &Message{
		To:  []string{"a@example.com", "b@example.com"},
		Cc:  []string{"c@example.com"},
		Bcc: []string{"d@example.com"},
	}
	assert.Equal(t,
		[]string{"a@example.com", "b@example.com", "c@example.com", "d@example.com"},
		msg.Recipients())
}

func TestRecipientsDeduplicates(t *testing.T) {
	msg := &Message{
		To:  []string{"a@example.com"},
		Cc:  []string{"A@example.com"},
		Bcc: []string{"a@example.com", "b@example.com"},
	}
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, msg.Recipients())
}

func TestRecipientsEmpty(t *testing.T) {
	msg := &Message{}
	assert.Empty(t, msg.Recipients())
}

func TestBuildMIMEOmitsBcc(t *testing.T) {
	raw, err := buildMIME(&Message{
		FromName: "Sam",
		FromAddr: "sam@example.com",
		To:       []string{"pat@example.com"},
		Cc:       []string{"boss@example.com"},
		Bcc:      []string{"hidden@example.com"},
		Subject:  "quarterly numbers",
		HTML:     "<p>see below</p>",
	})
	require.NoError(t, err)

	body := string(raw)
	assert.Contains(t, body, "pat@example.com")
	assert.Contains(t, body, "boss@example.com")
	assert.Contains(t, body, "quarterly numbers")
	assert.NotContains(t, body, "hidden@example.com")
}

func TestHeloDomain(t *testing.T) {
	assert.Equal(t, "example.com", heloDomain("sam@example.com"))
	assert.Equal(t, "localhost", heloDomain("not-an-address"))
	assert.Equal(t, "localhost", heloDomain("trailing@"))
}
