package mail

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutCredentialsIsDisabled(t *testing.T) {
	m := New("", "", "sig")
	assert.False(t, m.enabled)

	// must not panic even though it would otherwise try to dial smtp.
	m.TaskDone("a.mp3", time.Now())
}

func TestNewWithCredentialsIsEnabled(t *testing.T) {
	m := New("teacher@example.com", "hunter2", "csengő")
	assert.True(t, m.enabled)
}

func TestSMTPURLForIsWellFormed(t *testing.T) {
	m := New("teacher@example.com", "hunter2", "csengő")
	raw := m.smtpURLFor("bell.mp3")

	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "smtp", u.Scheme)
	assert.Equal(t, "smtp.gmail.com:587", u.Host)
	assert.Equal(t, "teacher@example.com", u.User.Username())
	pass, _ := u.User.Password()
	assert.Equal(t, "hunter2", pass)
	assert.Equal(t, "Adás: bell.mp3", u.Query().Get("subject"))
}
