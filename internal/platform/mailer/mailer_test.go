package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepare(t *testing.T) {
	m := NewSendgridMailer("key", "iQuizU", "no-reply@iquizu.app")
	v3 := m.prepare(Message{ToName: "Ana", ToEmail: "ana@school.edu", Subject: "Reset your password", Text: "t", HTML: "<p>t</p>"})

	require.Len(t, v3.Personalizations, 1)
	assert.Equal(t, "[iQuizU] Reset your password", v3.Personalizations[0].Subject)
	require.Len(t, v3.Personalizations[0].To, 1)
	assert.Equal(t, "ana@school.edu", v3.Personalizations[0].To[0].Address)
	assert.Equal(t, "no-reply@iquizu.app", v3.From.Address)
	require.Len(t, v3.Content, 2)
	assert.Equal(t, "text/plain", v3.Content[0].Type)
}

func TestConsoleMailer(t *testing.T) {
	assert.NoError(t, ConsoleMailer{}.Send(context.Background(), Message{ToEmail: "x@y.z"}))
}
