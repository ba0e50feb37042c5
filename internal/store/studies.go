package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Study represents a row in the studies table. A study is one experiment
// cohort whose participant sessions report telemetry under its API key.
type Study struct {
	ID           string
	Name         string
	APIKeyHash   string
	APIKeyPrefix string
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GenerateAPIKey creates a new bik_ API key with its bcrypt hash and prefix.
// Returns (fullKey, hash, prefix, error). The fullKey is shown to the user once.
func GenerateAPIKey() (string, string, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", "", fmt.Errorf("GenerateAPIKey: %w", err)
	}
	fullKey := "bik_" + hex.EncodeToString(raw) // 68 chars total

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(fullKey), bcrypt.DefaultCost)
	if err != nil {
		return "", "", "", fmt.Errorf("GenerateAPIKey: %w", err)
	}

	prefix := fullKey[:8] // "bik_abcd"
	return fullKey, string(hashBytes), prefix, nil
}

// CreateStudy inserts a new study. Returns the study and its plaintext API
// key (shown once).
func (s *Store) CreateStudy(ctx context.Context, name, notes string) (*Study, string, error) {
	fullKey, keyHash, keyPrefix, err := GenerateAPIKey()
	if err != nil {
		return nil, "", fmt.Errorf("CreateStudy: %w", err)
	}

	var st Study
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO studies (name, notes, api_key_hash, api_key_prefix)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, notes, api_key_hash, api_key_prefix, created_at, updated_at`,
		name, notes, keyHash, keyPrefix,
	).Scan(&st.ID, &st.Name, &st.Notes, &st.APIKeyHash, &st.APIKeyPrefix,
		&st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, "", fmt.Errorf("CreateStudy: %w", err)
	}

	return &st, fullKey, nil
}

// GetStudy returns a study by ID, or nil when it does not exist.
func (s *Store) GetStudy(ctx context.Context, id string) (*Study, error) {
	var st Study
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, notes, api_key_hash, api_key_prefix, created_at, updated_at
		FROM studies WHERE id = $1`,
		id,
	).Scan(&st.ID, &st.Name, &st.Notes, &st.APIKeyHash, &st.APIKeyPrefix,
		&st.CreatedAt, &st.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetStudy: %w", err)
	}
	return &st, nil
}

// ListStudies returns every study, newest first.
func (s *Store) ListStudies(ctx context.Context) ([]Study, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, notes, api_key_hash, api_key_prefix, created_at, updated_at
		FROM studies ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("ListStudies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var studies []Study
	for rows.Next() {
		var st Study
		if err := rows.Scan(&st.ID, &st.Name, &st.Notes, &st.APIKeyHash,
			&st.APIKeyPrefix, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ListStudies: %w", err)
		}
		studies = append(studies, st)
	}
	return studies, rows.Err()
}

// DeleteStudy removes a study. Returns false when no row matched.
func (s *Store) DeleteStudy(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM studies WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("DeleteStudy: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("DeleteStudy: %w", err)
	}
	return n > 0, nil
}

// RotateKey replaces a study's API key. Returns the updated study and the new
// plaintext key (shown once), or nil when the study does not exist.
func (s *Store) RotateKey(ctx context.Context, id string) (*Study, string, error) {
	fullKey, keyHash, keyPrefix, err := GenerateAPIKey()
	if err != nil {
		return nil, "", fmt.Errorf("RotateKey: %w", err)
	}

	var st Study
	err = s.db.QueryRowContext(ctx, `
		UPDATE studies
		SET api_key_hash = $2, api_key_prefix = $3, updated_at = now()
		WHERE id = $1
		RETURNING id, name, notes, api_key_hash, api_key_prefix, created_at, updated_at`,
		id, keyHash, keyPrefix,
	).Scan(&st.ID, &st.Name, &st.Notes, &st.APIKeyHash, &st.APIKeyPrefix,
		&st.CreatedAt, &st.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("RotateKey: %w", err)
	}
	return &st, fullKey, nil
}

// LookupByPrefix returns the study whose API key starts with the given
// prefix, or nil when none matches. Used by the auth middleware.
func (s *Store) LookupByPrefix(ctx context.Context, prefix string) (*Study, error) {
	var st Study
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, notes, api_key_hash, api_key_prefix, created_at, updated_at
		FROM studies WHERE api_key_prefix = $1`,
		prefix,
	).Scan(&st.ID, &st.Name, &st.Notes, &st.APIKeyHash, &st.APIKeyPrefix,
		&st.CreatedAt, &st.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("LookupByPrefix: %w", err)
	}
	return &st, nil
}
