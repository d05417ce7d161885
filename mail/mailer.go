package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/rimmartin/loom/auth/oauth"
)

type Mailer interface {
	Send(ctx context.Context, mail ...Mail) error
}

type Payload struct {
	Message         Message `json:"message"`
	SaveToSentItems bool    `json:"saveToSentItems"`
}

type Message struct {
	Subject      string        `json:"subject"`
	Body         Body          `json:"body"`
	ToRecipients []ToRecipient `json:"toRecipients"`
}

type Body struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type ToRecipient struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

type EmailAddress struct {
	Address string `json:"address"`
}

func NewMicrosoftMailer(tenantId, clientId, clientSecret, userId string) Mailer {
	return &microsoftMailer{
		client: oauth.NewMicrosoftClient(clientId, clientSecret, tenantId),
		userId: userId,
	}
}

type microsoftMailer struct {
	client *oauth.MicrosoftClient
	userId string

	mu          sync.Mutex
	cachedToken *oauth.TokenResponse
}

// token returns a cached client-credentials token, requesting a fresh one
// only once the cached one is past its ExpiresAt, since the token endpoint
// would otherwise be asked for a new bearer token on every single mail
// sent.
func (mailer *microsoftMailer) token() (*oauth.TokenResponse, error) {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()

	if mailer.cachedToken != nil && !mailer.cachedToken.IsExpired() {
		return mailer.cachedToken, nil
	}

	token, err := mailer.client.Token()
	if err != nil {
		return nil, err
	}
	mailer.cachedToken = token
	return token, nil
}

// Send sends each mail through the signed-in mailbox userId via the
// Microsoft Graph sendMail endpoint. A failure partway through leaves the
// remaining mails unsent; the caller sees the first error.
func (mailer *microsoftMailer) Send(ctx context.Context, mails ...Mail) error {
	token, err := mailer.token()
	if err != nil {
		return errors.Join(errors.New("mail: getting oauth token failed"), err)
	}

	url := fmt.Sprintf("https://graph.microsoft.com/v1.0/users/%s/sendMail", mailer.userId)
	httpClient := &http.Client{}

	for _, m := range mails {
		recipients := make([]ToRecipient, 0, len(m.To()))
		for _, addr := range m.To() {
			recipients = append(recipients, ToRecipient{EmailAddress: EmailAddress{Address: addr}})
		}

		payload, err := json.Marshal(Payload{
			Message: Message{
				Subject: m.Subject(),
				Body: Body{
					ContentType: "Text",
					Content:     string(m.Message()),
				},
				ToRecipients: recipients,
			},
			SaveToSentItems: false,
		})
		if err != nil {
			return errors.Join(errors.New("mail: payload marshal failed"), err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
		if err != nil {
			return errors.Join(errors.New("mail: building request failed"), err)
		}
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token.AccessToken))
		req.Header.Set("Content-Type", "application/json")

		resp, err := httpClient.Do(req)
		if err != nil {
			return errors.Join(fmt.Errorf("mail: sending to %v failed", m.To()), err)
		}

		body, err := io.ReadAll(resp.Body)
		closeErr := resp.Body.Close()
		if closeErr != nil {
			slog.Error("mail: closing response body failed", "error", closeErr)
		}
		if err != nil {
			return errors.Join(errors.New("mail: reading response body failed"), err)
		}

		if resp.StatusCode != http.StatusAccepted {
			return fmt.Errorf("mail: send to %v rejected with status %d: %s", m.To(), resp.StatusCode, string(body))
		}
	}

	return nil
}
