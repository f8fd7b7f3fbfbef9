package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/google/uuid"
	"github.com/resend/resend-go/v3"

	"cravlr/internal/config"
)

//go:embed templates/*.html
var templateFS embed.FS

type Service interface {
	SendResultsReadyEmail(ctx context.Context, toEmail, name, foodType string, requestID uuid.UUID, count int) error
	SendNewRecommendationEmail(ctx context.Context, toEmail, name, foodType, restaurantName string, requestID uuid.UUID) error
}

// Sender is the part of the Resend client the service needs.
type Sender interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type service struct {
	sender Sender
	config *config.Config
}

func NewService(cfg *config.Config) Service {
	client := resend.NewClient(cfg.ResendAPIKey)
	return NewServiceWithSender(client.Emails, cfg)
}

func NewServiceWithSender(sender Sender, cfg *config.Config) Service {
	return &service{
		sender: sender,
		config: cfg,
	}
}

func (s *service) sendEmail(toEmail, subject, templateName string, data interface{}) error {
	tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+templateName)
	if err != nil {
		return fmt.Errorf("failed to parse email templates: %w", err)
	}

	var body bytes.Buffer
	if err := tmpl.ExecuteTemplate(&body, "layout", data); err != nil {
		return fmt.Errorf("failed to execute email template: %w", err)
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("Cravlr <%s>", s.config.FromEmail),
		To:      []string{toEmail},
		Html:    body.String(),
		Subject: subject,
	}

	if _, err := s.sender.Send(params); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *service) resultsLink(requestID uuid.UUID) string {
	return fmt.Sprintf("https://%s/requests/%s/results", s.config.Domain, requestID)
}

func (s *service) SendResultsReadyEmail(ctx context.Context, toEmail, name, foodType string, requestID uuid.UUID, count int) error {
	data := struct {
		Title    string
		Name     string
		FoodType string
		Count    int
		Link     string
	}{
		Title:    "Your results are ready",
		Name:     name,
		FoodType: foodType,
		Count:    count,
		Link:     s.resultsLink(requestID),
	}
	return s.sendEmail(toEmail, fmt.Sprintf("Your %s recommendations are in", foodType), "results_ready.html", data)
}

func (s *service) SendNewRecommendationEmail(ctx context.Context, toEmail, name, foodType, restaurantName string, requestID uuid.UUID) error {
	data := struct {
		Title          string
		Name           string
		FoodType       string
		RestaurantName string
		Link           string
	}{
		Title:          "New recommendation",
		Name:           name,
		FoodType:       foodType,
		RestaurantName: restaurantName,
		Link:           s.resultsLink(requestID),
	}
	return s.sendEmail(toEmail, "Someone answered your craving", "new_recommendation.html", data)
}
