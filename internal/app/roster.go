package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"quizloop-service/internal/domain"
)

// Accepted roster header values, compared case-insensitively.
var rosterHeaders = []string{"名前", "name"}

// RosterService maintains the list of respondents.
type RosterService struct {
	respondents RespondentRepository
	log         zerolog.Logger
}

func NewRosterService(respondents RespondentRepository, log zerolog.Logger) *RosterService {
	return &RosterService{respondents: respondents, log: log}
}

func (r *RosterService) List(ctx context.Context) ([]domain.Respondent, error) {
	return r.respondents.ListRespondents(ctx)
}

// Import replaces the roster with the names in a single-column CSV. The first
// row must be the header; blank rows are skipped and every name gets a new id.
func (r *RosterService) Import(ctx context.Context, src io.Reader) ([]domain.Respondent, error) {
	names, err := parseRoster(src)
	if err != nil {
		return nil, err
	}

	roster := make([]domain.Respondent, 0, len(names))
	for _, name := range names {
		roster = append(roster, domain.Respondent{ID: "user-" + uuid.NewString(), Name: name})
	}
	if err := r.respondents.ReplaceRespondents(ctx, roster); err != nil {
		return nil, fmt.Errorf("replace roster: %w", err)
	}
	r.log.Info().Int("respondents", len(roster)).Msg("roster replaced")
	return roster, nil
}

func parseRoster(src io.Reader) ([]string, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", domain.ErrInvalidRoster)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRoster, err)
	}
	if !isRosterHeader(header) {
		return nil, domain.ErrInvalidRoster
	}

	var names []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRoster, err)
		}
		if len(record) == 0 {
			continue
		}
		name := strings.TrimSpace(record[0])
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

func isRosterHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	// Spreadsheet exports often start with a UTF-8 byte order mark.
	field := strings.TrimPrefix(record[0], "\ufeff")
	field = strings.ToLower(strings.TrimSpace(field))
	for _, h := range rosterHeaders {
		if field == h {
			return true
		}
	}
	return false
}
