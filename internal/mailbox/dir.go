package mailbox

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sagenews/sage/internal/config"
)

// DirMailbox reads .eml files from a directory. A separate fetcher (or a
// plain IMAP export) drops raw messages there; this keeps mail credentials
// out of the ingestion process entirely.
type DirMailbox struct {
	cfg      config.MailConfig
	settings config.Settings
	logger   *slog.Logger
	now      func() time.Time
}

func NewDirMailbox(cfg config.MailConfig, settings config.Settings, logger *slog.Logger) *DirMailbox {
	return &DirMailbox{
		cfg:      cfg,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

// FetchCandidates parses every .eml file in the directory and returns the
// messages that pass the allowlist, lookback window, and minimum body size,
// newest first, capped at MaxDigests.
func (m *DirMailbox) FetchCandidates(ctx context.Context) ([]DigestCandidate, error) {
	entries, err := os.ReadDir(m.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("read mailbox dir %s: %w", m.cfg.Dir, err)
	}

	cutoff := m.now().UTC().AddDate(0, 0, -m.cfg.WindowDays)

	var candidates []DigestCandidate
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".eml") {
			continue
		}

		path := filepath.Join(m.cfg.Dir, entry.Name())
		candidate, err := m.parseFile(path)
		if err != nil {
			m.logger.Warn("skipping unparseable message", "file", entry.Name(), "error", err)
			continue
		}

		if !m.settings.SenderAllowed(candidate.Sender) {
			m.logger.Debug("sender not allowlisted", "file", entry.Name(), "sender", candidate.Sender)
			continue
		}
		if candidate.Date.Before(cutoff) {
			continue
		}
		if len(candidate.Body()) < m.cfg.MinBodySize {
			m.logger.Debug("body below digest threshold",
				"file", entry.Name(), "size", len(candidate.Body()))
			continue
		}

		candidates = append(candidates, candidate)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Date.After(candidates[j].Date)
	})
	if m.cfg.MaxDigests > 0 && len(candidates) > m.cfg.MaxDigests {
		candidates = candidates[:m.cfg.MaxDigests]
	}

	m.logger.Info("mailbox scan complete",
		"files", len(entries), "candidates", len(candidates))
	return candidates, nil
}

func (m *DirMailbox) parseFile(path string) (DigestCandidate, error) {
	f, err := os.Open(path)
	if err != nil {
		return DigestCandidate{}, err
	}
	defer f.Close()

	msg, err := mail.ReadMessage(f)
	if err != nil {
		return DigestCandidate{}, fmt.Errorf("parse message: %w", err)
	}

	decoder := new(mime.WordDecoder)
	subject, err := decoder.DecodeHeader(msg.Header.Get("Subject"))
	if err != nil {
		subject = msg.Header.Get("Subject")
	}

	sender := msg.Header.Get("From")
	if addr, err := mail.ParseAddress(sender); err == nil {
		if addr.Name != "" {
			sender = fmt.Sprintf("%s <%s>", addr.Name, addr.Address)
		} else {
			sender = addr.Address
		}
	}

	date := time.Time{}
	if parsed, err := msg.Header.Date(); err == nil {
		date = parsed.UTC()
	}

	messageID := strings.Trim(msg.Header.Get("Message-ID"), "<> ")

	text, html, err := extractBodies(msg.Header.Get("Content-Type"),
		msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if err != nil {
		return DigestCandidate{}, fmt.Errorf("extract body: %w", err)
	}

	return DigestCandidate{
		MessageID: messageID,
		Subject:   subject,
		Sender:    sender,
		Date:      date,
		BodyText:  text,
		BodyHTML:  html,
	}, nil
}

// extractBodies walks the MIME structure collecting the first text/plain and
// text/html parts. Nested multiparts (alternative inside mixed) recurse.
func extractBodies(contentType, transferEncoding string, body io.Reader) (text, html string, err error) {
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", "", fmt.Errorf("parse content type %q: %w", contentType, err)
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return "", "", errors.New("multipart message without boundary")
		}
		reader := multipart.NewReader(body, boundary)
		for {
			part, err := reader.NextPart()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return "", "", fmt.Errorf("read part: %w", err)
			}
			partText, partHTML, err := extractBodies(
				part.Header.Get("Content-Type"),
				part.Header.Get("Content-Transfer-Encoding"), part)
			part.Close()
			if err != nil {
				continue
			}
			if text == "" {
				text = partText
			}
			if html == "" {
				html = partHTML
			}
		}
		return text, html, nil
	}

	decoded, err := decodeTransfer(transferEncoding, body)
	if err != nil {
		return "", "", err
	}

	switch mediaType {
	case "text/plain":
		return decoded, "", nil
	case "text/html":
		return "", decoded, nil
	default:
		return "", "", nil
	}
}

func decodeTransfer(encoding string, r io.Reader) (string, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(data), nil
}
