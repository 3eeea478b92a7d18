// Package sharelink turns a quiz definition into a compact URL-safe token and back,
// so a quiz can be taken from a link without a backing store lookup.
//
// Token format: base64url (no padding) of the zlib-compressed JSON document
// {"id","name","questions":[{"id","question_text","options","correct_answer"}]}.
package sharelink

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/klauspost/compress/zlib"

	"quizloop-service/internal/domain"
)

// QueryParam is the query parameter that carries a token on quiz URLs.
const QueryParam = "data"

// maxPayload bounds the inflated JSON size.
const maxPayload = 4 << 20

type sharedQuiz struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Questions []domain.Question `json:"questions"`
}

type sharedQuizWire struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Questions json.RawMessage `json:"questions"`
}

var alphabetFix = strings.NewReplacer("+", "-", "/", "_")

// Encode serializes the shareable part of p. Transcript, slug, publish state and
// creation time are not carried.
func Encode(p domain.Project) (string, error) {
	questions := p.Questions
	if questions == nil {
		questions = []domain.Question{}
	}
	raw, err := json.Marshal(sharedQuiz{ID: p.ID, Name: p.Name, Questions: questions})
	if err != nil {
		return "", fmt.Errorf("marshal shared quiz: %w", err)
	}

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return "", fmt.Errorf("compress shared quiz: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compress shared quiz: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode reverses Encode. Every failure is reported as domain.ErrInvalidShareToken;
// fields the token does not carry are defaulted (published, created now).
func Decode(token string) (domain.Project, error) {
	return decodeAt(token, time.Now())
}

func decodeAt(token string, now time.Time) (domain.Project, error) {
	normalized := alphabetFix.Replace(strings.TrimRight(strings.TrimSpace(token), "="))
	compressed, err := base64.RawURLEncoding.DecodeString(normalized)
	if err != nil {
		return domain.Project{}, invalid("base64", err)
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return domain.Project{}, invalid("inflate", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(io.LimitReader(zr, maxPayload+1))
	if err != nil {
		return domain.Project{}, invalid("inflate", err)
	}
	if len(raw) > maxPayload {
		return domain.Project{}, invalid("inflate", fmt.Errorf("payload exceeds %d bytes", maxPayload))
	}

	var wire sharedQuizWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return domain.Project{}, invalid("json", err)
	}
	if wire.ID == "" || wire.Name == "" {
		return domain.Project{}, invalid("fields", fmt.Errorf("id and name are required"))
	}
	trimmed := bytes.TrimSpace(wire.Questions)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return domain.Project{}, invalid("fields", fmt.Errorf("questions must be an array"))
	}
	questions := []domain.Question{}
	if err := json.Unmarshal(trimmed, &questions); err != nil {
		return domain.Project{}, invalid("json", err)
	}

	return domain.Project{
		ID:          wire.ID,
		Name:        wire.Name,
		Transcript:  "",
		URLSlug:     "",
		IsPublished: true,
		Questions:   questions,
		CreatedAt:   now,
	}, nil
}

// ShareURL builds the visitor URL for a project: <base>/quiz/<slug>?data=<token>.
// Projects without a slug use their id as the path segment.
func ShareURL(baseURL string, p domain.Project) (string, error) {
	token, err := Encode(p)
	if err != nil {
		return "", err
	}
	segment := p.URLSlug
	if segment == "" {
		segment = p.ID
	}
	q := url.Values{}
	q.Set(QueryParam, token)
	return strings.TrimRight(baseURL, "/") + "/quiz/" + url.PathEscape(segment) + "?" + q.Encode(), nil
}

func invalid(stage string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrInvalidShareToken, stage, err)
}
