package notify

import (
	"bytes"
	"fmt"
	"text/template"
	"time"
)

const resetSubject = "Reset your password"

var resetBody = template.Must(template.New("reset").Parse(`Hello {{.Email}},

Somebody asked to reset the password of your account.
Open the link below to choose a new one:

{{.Link}}

The link is valid until {{.ExpiresAt.Format "2006-01-02 15:04 MST"}}.
If you did not ask for this, ignore this message.
`))

type ResetData struct {
	Email     string
	Link      string
	ExpiresAt time.Time
}

func ResetMessage(d ResetData) (Message, error) {
	var buf bytes.Buffer
	if err := resetBody.Execute(&buf, d); err != nil {
		return Message{}, fmt.Errorf("render reset mail: %w", err)
	}
	return Message{To: d.Email, Subject: resetSubject, Body: buf.String()}, nil
}
