package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AddSourceDocument inserts an uploaded evidence file record.
func (s *Store) AddSourceDocument(ctx context.Context, doc *SourceDocument) error {
	if err := s.ready(); err != nil {
		return err
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	doc.CreatedAt = time.Now().UTC()
	query := s.db.Rebind(`INSERT INTO source_documents (id, letter_id, file_name, file_path, mime_type, size_bytes, extracted_text, created_at)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query,
		doc.ID, doc.LetterID, doc.FileName, doc.FilePath, doc.MimeType,
		doc.SizeBytes, doc.ExtractedText, doc.CreatedAt); err != nil {
		return fmt.Errorf("insert source document: %w", err)
	}
	return nil
}

// DocumentsForLetter lists a letter's uploaded documents in upload order.
func (s *Store) DocumentsForLetter(ctx context.Context, letterID string) ([]SourceDocument, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	docs := []SourceDocument{}
	query := s.db.Rebind(`SELECT * FROM source_documents WHERE letter_id = ? ORDER BY created_at, id`)
	if err := s.db.SelectContext(ctx, &docs, query, letterID); err != nil {
		return nil, fmt.Errorf("select source documents: %w", err)
	}
	return docs, nil
}

// DocumentByID retrieves one uploaded document.
func (s *Store) DocumentByID(ctx context.Context, id string) (*SourceDocument, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var doc SourceDocument
	query := s.db.Rebind(`SELECT * FROM source_documents WHERE id = ?`)
	if err := s.db.GetContext(ctx, &doc, query, id); err != nil {
		return nil, mapNotFound(err)
	}
	return &doc, nil
}

// DeleteDocument removes an uploaded document record.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	query := s.db.Rebind(`DELETE FROM source_documents WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete source document: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}
