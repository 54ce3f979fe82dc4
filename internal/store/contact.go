package store

import (
	"database/sql"
	"fmt"
)

// ReplaceContacts writes a batch of contacts in one transaction. Existing
// rows are replaced wholesale.
func (s *ProfileStore) ReplaceContacts(contacts []ContactInfo) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range contacts {
		c := &contacts[i]
		if _, err := tx.Exec(`
			INSERT OR REPLACE INTO contacts (id, name, phone, is_self)
			VALUES (?, ?, ?, ?)`,
			c.ID, c.Name, c.Phone, c.IsSelf); err != nil {
			return fmt.Errorf("replace contact %q: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// SelectContacts returns all cached contacts ordered by name.
func (s *ProfileStore) SelectContacts() ([]ContactInfo, error) {
	rows, err := s.db.Query(`SELECT id, name, phone, is_self FROM contacts ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("select contacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var contacts []ContactInfo
	for rows.Next() {
		var c ContactInfo
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.IsSelf); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// GetContact returns one contact, or nil if it is not cached.
func (s *ProfileStore) GetContact(id string) (*ContactInfo, error) {
	var c ContactInfo
	err := s.db.QueryRow(`SELECT id, name, phone, is_self FROM contacts WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Phone, &c.IsSelf)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select contact %q: %w", id, err)
	}
	return &c, nil
}

// ContactCount returns the number of cached contacts.
func (s *ProfileStore) ContactCount() (int64, error) {
	var count int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM contacts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count contacts: %w", err)
	}
	return count, nil
}
