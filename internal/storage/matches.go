package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/longbox/internal/common"
	"github.com/Veraticus/longbox/internal/model"
)

// SaveVerifiedMatch caches a user-confirmed match under its hash.
func (s *SQLiteStorage) SaveVerifiedMatch(ctx context.Context, match *model.VerifiedMatch) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateVerifiedMatch(match); err != nil {
		return err
	}

	if match.VerifiedAt.IsZero() {
		match.VerifiedAt = time.Now()
	}
	match.VerifiedAt = dbTime(match.VerifiedAt)

	m := match.Match
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO verified_matches (hash, external_id, title, issue_number, publisher, cover_url, year, confidence, use_count, verified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET
			external_id = excluded.external_id,
			title = excluded.title,
			issue_number = excluded.issue_number,
			publisher = excluded.publisher,
			cover_url = excluded.cover_url,
			year = excluded.year,
			confidence = excluded.confidence,
			verified_at = excluded.verified_at
	`, match.Hash, m.ExternalID, m.Title, m.IssueNumber, m.Publisher, m.CoverURL, m.Year, m.Confidence, match.UseCount, match.VerifiedAt)
	if err != nil {
		return fmt.Errorf("failed to save verified match: %w", err)
	}

	s.invalidateMatchCache(match.Hash)
	return nil
}

// GetVerifiedMatch looks up a verified match and records the hit.
func (s *SQLiteStorage) GetVerifiedMatch(ctx context.Context, hash string) (*model.VerifiedMatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(hash, "hash"); err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, `UPDATE verified_matches SET use_count = use_count + 1 WHERE hash = ?`, hash); err != nil {
		return nil, fmt.Errorf("failed to record match use: %w", err)
	}

	if cached := s.getCachedMatch(hash); cached != nil {
		cached.UseCount++
		s.cacheMatch(cached)
		return cached, nil
	}

	var match model.VerifiedMatch
	var issue, publisher, cover sql.NullString
	var year sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT hash, external_id, title, issue_number, publisher, cover_url, year, confidence, use_count, verified_at
		FROM verified_matches
		WHERE hash = ?
	`, hash).Scan(
		&match.Hash,
		&match.Match.ExternalID,
		&match.Match.Title,
		&issue,
		&publisher,
		&cover,
		&year,
		&match.Match.Confidence,
		&match.UseCount,
		&match.VerifiedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("verified match %s: %w", hash, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get verified match: %w", err)
	}

	match.Match.IssueNumber = issue.String
	match.Match.Publisher = publisher.String
	match.Match.CoverURL = cover.String
	match.Match.Year = int(year.Int64)

	s.cacheMatch(&match)
	return &match, nil
}

func (s *SQLiteStorage) getCachedMatch(hash string) *model.VerifiedMatch {
	s.cacheMutex.RLock()
	defer s.cacheMutex.RUnlock()

	if match, ok := s.matchCache[hash]; ok {
		copied := *match
		return &copied
	}
	return nil
}

func (s *SQLiteStorage) cacheMatch(match *model.VerifiedMatch) {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()

	copied := *match
	s.matchCache[match.Hash] = &copied
}

func (s *SQLiteStorage) invalidateMatchCache(hash string) {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()
	delete(s.matchCache, hash)
}
