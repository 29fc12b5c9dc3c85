package ingestion

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/fmuoria/resume-analyzer/internal/logger"
	"github.com/fmuoria/resume-analyzer/internal/models"
)

const gmailUser = "me"

var (
	// ErrGmailTokenMissing is returned when no OAuth token has been stored yet
	ErrGmailTokenMissing = errors.New("gmail token not found, authorise the account first")
	// ErrNoMessages is returned when no message matches the subject
	ErrNoMessages = errors.New("no messages found")
)

// GmailSource fetches résumé attachments from a Gmail inbox
type GmailSource struct {
	service *gmail.Service
	logger  *zap.Logger
}

// NewGmailSource creates a Gmail source from an OAuth client credentials file
// and a previously stored token
func NewGmailSource(ctx context.Context, credentialsPath, tokenPath string, log *zap.Logger) (*GmailSource, error) {
	config, err := oauthConfig(credentialsPath)
	if err != nil {
		return nil, err
	}

	tok, err := tokenFromFile(tokenPath)
	if err != nil {
		return nil, err
	}

	srv, err := gmail.NewService(ctx, option.WithTokenSource(config.TokenSource(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail client: %w", err)
	}

	return NewGmailSourceWithService(srv, log), nil
}

// NewGmailSourceWithService wraps an existing Gmail service
func NewGmailSourceWithService(srv *gmail.Service, log *zap.Logger) *GmailSource {
	return &GmailSource{service: srv, logger: logger.OrNop(log)}
}

func oauthConfig(credentialsPath string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}
	return config, nil
}

// AuthorizeGmail runs the installed-app consent flow once: it prints the
// consent URL to out, reads the authorization code from in and stores the
// token at tokenPath for NewGmailSource.
func AuthorizeGmail(ctx context.Context, credentialsPath, tokenPath string, in io.Reader, out io.Writer) error {
	config, err := oauthConfig(credentialsPath)
	if err != nil {
		return err
	}

	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Go to the following link in your browser then type the authorization code:\n%s\n", authURL)

	var authCode string
	if _, err := fmt.Fscan(in, &authCode); err != nil {
		return fmt.Errorf("unable to read authorization code: %w", err)
	}

	tok, err := config.Exchange(ctx, authCode)
	if err != nil {
		return fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return saveToken(tokenPath, tok)
}

// saveToken saves a token to a file path
func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("unable to write oauth token: %w", err)
	}
	return nil
}

// tokenFromFile retrieves a token from a local file
func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrGmailTokenMissing, path)
		}
		return nil, fmt.Errorf("unable to open token file: %w", err)
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("unable to decode token file: %w", err)
	}
	return tok, nil
}

// FetchAttachments downloads every attachment of messages matching subject.
// Files are named "<Sender>_<original name>". Messages and attachments that
// cannot be read are logged and skipped.
func (g *GmailSource) FetchAttachments(ctx context.Context, subject string) ([]models.UploadedFile, error) {
	query := fmt.Sprintf("subject:%s has:attachment", subject)

	var messageIDs []string
	err := g.service.Users.Messages.List(gmailUser).Q(query).Pages(ctx, func(r *gmail.ListMessagesResponse) error {
		for _, m := range r.Messages {
			messageIDs = append(messageIDs, m.Id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve messages: %w", err)
	}

	if len(messageIDs) == 0 {
		return nil, fmt.Errorf("%w with subject: %s", ErrNoMessages, subject)
	}

	g.logger.Info("gmail messages found", zap.Int("count", len(messageIDs)), zap.String("subject", subject))

	files := make([]models.UploadedFile, 0, len(messageIDs))
	for _, id := range messageIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		message, err := g.service.Users.Messages.Get(gmailUser, id).Context(ctx).Do()
		if err != nil {
			g.logger.Warn("unable to retrieve message", zap.String("message_id", id), zap.Error(err))
			continue
		}
		if message.Payload == nil {
			continue
		}

		sender := extractSenderName(message)
		for _, part := range attachmentParts(message.Payload) {
			data, err := g.attachmentData(ctx, id, part)
			if err != nil {
				g.logger.Warn("unable to retrieve attachment",
					zap.String("message_id", id),
					zap.String("file", part.Filename),
					zap.Error(err))
				continue
			}

			name := fmt.Sprintf("%s_%s", sender, filepath.Base(part.Filename))
			files = append(files, models.UploadedFile{Name: name, Data: data})
			g.logger.Debug("attachment downloaded", zap.String("file", name), zap.Int("bytes", len(data)))
		}
	}

	return files, nil
}

func (g *GmailSource) attachmentData(ctx context.Context, messageID string, part *gmail.MessagePart) ([]byte, error) {
	encoded := part.Body.Data
	if part.Body.AttachmentId != "" {
		attachment, err := g.service.Users.Messages.Attachments.Get(gmailUser, messageID, part.Body.AttachmentId).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		encoded = attachment.Data
	}
	return decodeBase64URL(encoded)
}

// attachmentParts walks nested multipart payloads and returns parts carrying a file
func attachmentParts(part *gmail.MessagePart) []*gmail.MessagePart {
	var out []*gmail.MessagePart
	if part.Filename != "" && part.Body != nil && (part.Body.AttachmentId != "" || part.Body.Data != "") {
		out = append(out, part)
	}
	for _, child := range part.Parts {
		out = append(out, attachmentParts(child)...)
	}
	return out
}

func decodeBase64URL(s string) ([]byte, error) {
	if data, err := base64.URLEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}

// extractSenderName extracts the sender's name from email headers
func extractSenderName(message *gmail.Message) string {
	for _, header := range message.Payload.Headers {
		if !strings.EqualFold(header.Name, "From") {
			continue
		}

		from := strings.TrimSpace(header.Value)
		if idx := strings.Index(from, "<"); idx >= 0 {
			name := strings.Trim(strings.TrimSpace(from[:idx]), `"`)
			if name = strings.ReplaceAll(name, " ", ""); name != "" {
				return name
			}
			from = strings.Trim(from[idx:], "<>")
		}
		if idx := strings.Index(from, "@"); idx > 0 {
			return from[:idx]
		}
		return "Unknown"
	}
	return "Unknown"
}
