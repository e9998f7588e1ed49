package labels

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStore serves labels from the goose-migrated labels table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed label provider.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Lookup(ctx context.Context, address string) (*Label, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT address, name, type, description, related_addresses
		FROM labels
		WHERE address = $1
	`, address)

	l, err := scanLabel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("labels: lookup %s: %w", address, err)
	}
	return l, nil
}

func (s *PostgresStore) LookupMany(ctx context.Context, addresses []string) (map[string]*Label, error) {
	if len(addresses) == 0 {
		return map[string]*Label{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT address, name, type, description, related_addresses
		FROM labels
		WHERE address = ANY($1)
	`, pq.Array(addresses))
	if err != nil {
		return nil, fmt.Errorf("labels: lookup batch: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]*Label)
	for rows.Next() {
		l, err := scanLabel(rows)
		if err != nil {
			continue
		}
		result[l.Address] = l
	}
	return result, rows.Err()
}

// Upsert inserts or replaces a label. Used by the admin import path.
func (s *PostgresStore) Upsert(ctx context.Context, l *Label) error {
	related, err := json.Marshal(l.RelatedAddresses)
	if err != nil {
		return fmt.Errorf("labels: marshal related addresses: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO labels (address, name, type, description, related_addresses)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (address) DO UPDATE
		SET name = EXCLUDED.name,
		    type = EXCLUDED.type,
		    description = EXCLUDED.description,
		    related_addresses = EXCLUDED.related_addresses,
		    updated_at = now()
	`, l.Address, l.Name, string(l.Type), l.Description, related)
	if err != nil {
		return fmt.Errorf("labels: upsert %s: %w", l.Address, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLabel(r rowScanner) (*Label, error) {
	var l Label
	var typ string
	var description sql.NullString
	var related []byte

	if err := r.Scan(&l.Address, &l.Name, &typ, &description, &related); err != nil {
		return nil, err
	}
	l.Type = Type(typ)
	l.Description = description.String
	if len(related) > 0 {
		_ = json.Unmarshal(related, &l.RelatedAddresses)
	}
	return &l, nil
}
