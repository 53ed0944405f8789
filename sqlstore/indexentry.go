package sqlstore

import (
	"context"
	"fmt"

	"github.com/bulgusearch/bulgu"
)

// Compile-time interface verification.
var _ bulgu.IndexService = (*IndexService)(nil)

// IndexService implements bulgu.IndexService over the horizontally
// partitioned inverted index. Rows route to a physical table by the first
// letter of the word; reads union the partitions a query touches.
type IndexService struct {
	s *Session
}

// NewIndexService creates an IndexService bound to a session.
func NewIndexService(s *Session) *IndexService {
	return &IndexService{s: s}
}

// AddEntry inserts one index row into the word's partition.
func (svc *IndexService) AddEntry(ctx context.Context, entry *bulgu.IndexEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	table := partitionOf(entry.Word)
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx, svc.s.db.Rebind(fmt.Sprintf(`
		INSERT INTO %s (document_url, word, frequency, location, tag)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (document_url, word, location) DO UPDATE SET
			frequency = excluded.frequency,
			tag = excluded.tag
	`, table)), entry.DocumentURL, entry.Word, entry.Frequency, entry.Location, entry.Tag)
	return err
}

// FindEntriesByWords returns every row whose word is in words, unioned
// across the partitions the words map to. Results are grouped by partition
// and ordered by document URL then location within each.
func (svc *IndexService) FindEntriesByWords(ctx context.Context, words []string) ([]*bulgu.IndexEntry, error) {
	if len(words) == 0 {
		return nil, nil
	}

	// Group query words by their partition so each physical table is
	// scanned once.
	byTable := make(map[string][]string)
	for _, word := range words {
		table := partitionOf(word)
		byTable[table] = append(byTable[table], word)
	}

	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return nil, err
	}

	var entries []*bulgu.IndexEntry
	for _, table := range allPartitions() {
		tableWords, ok := byTable[table]
		if !ok {
			continue
		}

		placeholders := ""
		args := make([]any, 0, len(tableWords))
		for i, word := range tableWords {
			if i > 0 {
				placeholders += ", "
			}
			placeholders += "?"
			args = append(args, word)
		}

		rows, err := conn.QueryContext(ctx, svc.s.db.Rebind(fmt.Sprintf(`
			SELECT document_url, word, frequency, location, tag
			FROM %s WHERE word IN (%s)
			ORDER BY document_url, location
		`, table, placeholders)), args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var entry bulgu.IndexEntry
			if err := rows.Scan(&entry.DocumentURL, &entry.Word, &entry.Frequency, &entry.Location, &entry.Tag); err != nil {
				rows.Close()
				return nil, err
			}
			entries = append(entries, &entry)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return entries, nil
}

// DeleteAllEntries wipes every index partition.
func (svc *IndexService) DeleteAllEntries(ctx context.Context) error {
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return err
	}
	for _, table := range allPartitions() {
		if _, err := conn.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, table)); err != nil {
			return err
		}
	}
	return nil
}

// CountEntries returns the number of index rows across all partitions.
func (svc *IndexService) CountEntries(ctx context.Context) (int, error) {
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, table := range allPartitions() {
		var n int
		if err := conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&n); err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// CountEntriesByDocument returns the number of rows stored for documentURL
// across all partitions.
func (svc *IndexService) CountEntriesByDocument(ctx context.Context, documentURL string) (int, error) {
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, table := range allPartitions() {
		var n int
		err := conn.QueryRowContext(ctx, svc.s.db.Rebind(fmt.Sprintf(`
			SELECT COUNT(*) FROM %s WHERE document_url = ?
		`, table)), documentURL).Scan(&n)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
