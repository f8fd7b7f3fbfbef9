package email_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/resend/resend-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cravlr/internal/config"
	"cravlr/internal/service/email"
)

type captureSender struct {
	sent []*resend.SendEmailRequest
	err  error
}

func (c *captureSender) Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.sent = append(c.sent, params)
	return &resend.SendEmailResponse{}, nil
}

func testConfig() *config.Config {
	return &config.Config{FromEmail: "noreply@cravlr.test", Domain: "cravlr.test"}
}

func TestSendResultsReadyEmail(t *testing.T) {
	sender := &captureSender{}
	svc := email.NewServiceWithSender(sender, testConfig())
	requestID := uuid.New()

	err := svc.SendResultsReadyEmail(context.Background(), "sam@example.com", "Sam", "ramen", requestID, 3)
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "Cravlr <noreply@cravlr.test>", msg.From)
	assert.Equal(t, []string{"sam@example.com"}, msg.To)
	assert.Equal(t, "Your ramen recommendations are in", msg.Subject)
	assert.Contains(t, msg.Html, "Hi Sam,")
	assert.Contains(t, msg.Html, "3 recommendations")
	assert.Contains(t, msg.Html, "https://cravlr.test/requests/"+requestID.String()+"/results")
}

func TestSendResultsReadyEmail_Singular(t *testing.T) {
	sender := &captureSender{}
	svc := email.NewServiceWithSender(sender, testConfig())

	require.NoError(t, svc.SendResultsReadyEmail(context.Background(), "sam@example.com", "Sam", "tacos", uuid.New(), 1))
	assert.Contains(t, sender.sent[0].Html, "1 recommendation.")
}

func TestSendNewRecommendationEmail(t *testing.T) {
	sender := &captureSender{}
	svc := email.NewServiceWithSender(sender, testConfig())

	err := svc.SendNewRecommendationEmail(context.Background(), "sam@example.com", "Sam", "pho", "Pho Bac", uuid.New())
	require.NoError(t, err)
	assert.Contains(t, sender.sent[0].Html, "Pho Bac was suggested for your pho craving.")
}

func TestSendEmail_SenderError(t *testing.T) {
	sender := &captureSender{err: errors.New("rate limited")}
	svc := email.NewServiceWithSender(sender, testConfig())

	err := svc.SendResultsReadyEmail(context.Background(), "sam@example.com", "Sam", "ramen", uuid.New(), 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}
