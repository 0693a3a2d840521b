package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumen/internal/models"
)

func TestStoreAppendPreservesOrder(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := New(nil)
	s.Append(models.NewUserMessage("one", nil, now))
	s.Append(models.NewModelMessage("two", "Fast Response", now))
	s.Append(models.NewUserMessage("three", nil, now))

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "one", msgs[0].Text())
	assert.Equal(t, "two", msgs[1].Text())
	assert.Equal(t, "three", msgs[2].Text())
	assert.Equal(t, 3, s.Len())
}

func TestStoreIsolatesCallers(t *testing.T) {
	now := time.Unix(1700000000, 0)
	att := &models.Attachment{Data: "aGk=", MIMEType: "image/png"}
	s := New([]models.Message{models.NewUserMessage("look", att, now)})

	msgs := s.Messages()
	msgs[0].Parts[0].Inline.Data = "changed"
	msgs[0].Parts[1].Text = "changed"

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, "aGk=", last.Media().Data)
	assert.Equal(t, "look", last.Text())
}

func TestStoreTail(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := New(nil)
	for _, text := range []string{"a", "b", "c", "d"} {
		s.Append(models.NewUserMessage(text, nil, now))
	}

	assert.Len(t, s.Tail(0), 4)
	assert.Len(t, s.Tail(10), 4)
	tail := s.Tail(2)
	require.Len(t, tail, 2)
	assert.Equal(t, "c", tail[0].Text())
	assert.Equal(t, "d", tail[1].Text())
}

func TestStoreLastEmpty(t *testing.T) {
	_, ok := New(nil).Last()
	assert.False(t, ok)
}
