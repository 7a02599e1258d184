// Package mail sends the best-effort "task played" notification email
// an operator can opt into by setting MAIL_ADDR/MAIL_PASS; with either
// unset, TaskDone is a silent no-op, matching the original
// implementation's behavior.
package mail

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/rs/zerolog/log"

	"github.com/beni69/csengo/internal/metrics"
)

const smtpHost = "smtp.gmail.com"
const smtpPort = 587

// Mailer sends task-completion notifications over SMTP via shoutrrr.
type Mailer struct {
	addr      string
	pass      string
	signature string
	enabled   bool
}

// New builds a Mailer from addr/pass/signature (normally sourced from
// internal/config). If addr or pass is empty, TaskDone becomes a
// no-op and logs once why.
func New(addr, pass, signature string) *Mailer {
	m := &Mailer{addr: addr, pass: pass, signature: signature, enabled: addr != "" && pass != ""}
	if !m.enabled {
		log.Warn().Msg("MAIL_ADDR or MAIL_PASS not set, no mail will be sent")
	}
	return m
}

// TaskDone notifies that fileName played at when. Failures are
// logged and swallowed; email delivery is never load-bearing for
// playback.
func (m *Mailer) TaskDone(fileName string, when time.Time) {
	if !m.enabled {
		return
	}

	body := fmt.Sprintf(`
Tisztelt Tanár úr! <br/>
<br/>
Sikeresen lement a következő adás: <br/>
Név: <b>%s</b> <br/>
Időpont: <b>%s</b> <br/>
<br/>
%s`, fileName, when.Local().Format("2006-01-02 15:04:05"), m.signature)

	sender, err := shoutrrr.CreateSender(m.smtpURLFor(fileName))
	if err != nil {
		log.Error().Err(err).Msg("failed to build smtp sender")
		metrics.RecordEmail(false)
		return
	}

	errs := sender.Send(strings.TrimSpace(body), nil)
	for _, e := range errs {
		if e != nil {
			log.Error().Err(e).Msg("failed to send mail")
			metrics.RecordEmail(false)
			return
		}
	}

	log.Info().Str("file", fileName).Msg("mail sent")
	metrics.RecordEmail(true)
}

// smtpURLFor builds a shoutrrr SMTP service URL notifying m.addr from
// itself, in HTML, with fileName folded into the subject line.
func (m *Mailer) smtpURLFor(fileName string) string {
	subject := "Adás"
	if fileName != "" {
		subject = "Adás: " + fileName
	}

	q := url.Values{}
	q.Set("from", m.addr)
	q.Set("fromname", "Csengő Mail")
	q.Set("subject", subject)
	q.Set("usehtml", "Yes")

	u := url.URL{
		Scheme: "smtp",
		User:   url.UserPassword(m.addr, m.pass),
		Host:   fmt.Sprintf("%s:%d", smtpHost, smtpPort),
		Path:   "/" + url.QueryEscape(m.addr),
	}
	u.RawQuery = q.Encode()
	return u.String()
}
