// Package store persists a record of every accepted room submission. The
// record is an audit trail: the exact payload handed to the room-creation
// procedure, keyed by flow, so a lost or disputed submission can be replayed.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"exhibitforms/pkg/domain"
)

// ErrNotFound is returned when no submission exists for a flow.
var ErrNotFound = errors.New("submission not found")

// Submission is one accepted room-creation request.
type Submission struct {
	ID              uint           `gorm:"primaryKey"`
	FlowID          string         `gorm:"uniqueIndex;size:64"`
	FolderName      string         `gorm:"size:128"`
	GeneratorType   string         `gorm:"size:32"`
	RoomGeneratorID string         `gorm:"size:32"`
	Email           string         `gorm:"index;size:255"`
	Payload         datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt       time.Time
}

// Store records accepted submissions.
type Store interface {
	Save(ctx context.Context, sub *Submission) error
	GetByFlowID(ctx context.Context, flowID string) (*Submission, error)
}

// NewSubmission packs a RoomWaiting payload into an audit record.
func NewSubmission(flowID, folderName, generatorType, roomGeneratorID string, rw domain.RoomWaiting) (*Submission, error) {
	payload, err := json.Marshal(rw)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return &Submission{
		FlowID:          flowID,
		FolderName:      folderName,
		GeneratorType:   generatorType,
		RoomGeneratorID: roomGeneratorID,
		Email:           rw.Email,
		Payload:         payload,
	}, nil
}

// GormStore is the Postgres-backed implementation.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the database and migrates the schema.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&Submission{}); err != nil {
		return nil, fmt.Errorf("migrate submissions: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Save upserts by flow id; a retried submit overwrites its earlier record.
func (s *GormStore) Save(ctx context.Context, sub *Submission) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "flow_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"folder_name", "generator_type", "room_generator_id", "email", "payload"}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("save submission: %w", err)
	}
	return nil
}

// GetByFlowID loads the submission recorded for a flow.
func (s *GormStore) GetByFlowID(ctx context.Context, flowID string) (*Submission, error) {
	var sub Submission
	err := s.db.WithContext(ctx).Where("flow_id = ?", flowID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load submission: %w", err)
	}
	return &sub, nil
}

// MemoryStore keeps submissions in memory for tests and database-less runs.
type MemoryStore struct {
	mu   sync.Mutex
	subs map[string]Submission
	next uint
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: map[string]Submission{}}
}

func (s *MemoryStore) Save(_ context.Context, sub *Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.subs[sub.FlowID]; ok {
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
	} else {
		s.next++
		sub.ID = s.next
		sub.CreatedAt = time.Now()
	}
	s.subs[sub.FlowID] = *sub
	return nil
}

func (s *MemoryStore) GetByFlowID(_ context.Context, flowID string) (*Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[flowID]
	if !ok {
		return nil, ErrNotFound
	}
	out := sub
	return &out, nil
}
