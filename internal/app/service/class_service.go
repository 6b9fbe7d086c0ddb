package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"path"
	"time"

	"iquizu/internal/common"
	"iquizu/internal/domain/model"
	"iquizu/internal/domain/repository"
	"iquizu/internal/domain/roster"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type ClassService struct {
	txm         repository.TxManager
	userRepo    repository.UserRepository
	classRepo   repository.ClassRepository
	archiveRepo repository.ArchiveRepository
	files       FileStore
	maxClasses  int
	now         func() time.Time
}

func NewClassService(
	txm repository.TxManager,
	userRepo repository.UserRepository,
	classRepo repository.ClassRepository,
	archiveRepo repository.ArchiveRepository,
	files FileStore,
	maxClasses int,
) *ClassService {
	return &ClassService{
		txm:         txm,
		userRepo:    userRepo,
		classRepo:   classRepo,
		archiveRepo: archiveRepo,
		files:       files,
		maxClasses:  maxClasses,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type ImportClassRequest struct {
	Name     string `validate:"notblank"`
	Subject  string
	FileName string `validate:"required"`
	Data     []byte
}

// ImportClass creates a class from an uploaded classlist and enrols its students.
// Students are matched by email; unmatched rows become roster-only accounts.
func (s *ClassService) ImportClass(ctx context.Context, teacherID string, req ImportClassRequest) (*model.ImportResult, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	entries, err := roster.Parse(req.FileName, bytes.NewReader(req.Data))
	if err != nil {
		return nil, err
	}

	result := &model.ImportResult{}
	err = s.txm.WithTx(ctx, func(tx *sql.Tx) error {
		// Serialise imports per teacher so the cap cannot be raced past.
		if err := s.userRepo.LockForUpdate(ctx, tx, teacherID); err != nil {
			return err
		}
		count, err := s.classRepo.CountByTeacher(ctx, tx, teacherID)
		if err != nil {
			return err
		}
		if count >= s.maxClasses {
			return fmt.Errorf("you have reached the maximum of %d classes, delete an existing class first: %w", s.maxClasses, common.ErrClassLimitReached)
		}
		teacher, err := s.userRepo.FindByID(ctx, teacherID)
		if err != nil {
			return err
		}

		name := common.CleanString(req.Name)
		class := &model.Class{
			ID:           uuid.NewString(),
			Name:         name,
			Slug:         slug.Make(name),
			Subject:      common.CleanString(req.Subject),
			TeacherID:    teacher.ID,
			TeacherEmail: teacher.Email,
			TeacherName:  teacher.DisplayName(),
			Status:       model.ClassStatusActive,
			FileName:     req.FileName,
			UploadedAt:   s.now(),
		}
		if err := s.classRepo.Create(ctx, tx, class); err != nil {
			return err
		}

		if err := s.enrol(ctx, tx, class.ID, entries, result); err != nil {
			return err
		}

		class.StudentCount = result.NewStudents + result.AddedToExisting
		if err := s.classRepo.Update(ctx, tx, class); err != nil {
			return err
		}
		result.Class = class
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.attachOriginal(ctx, result.Class, req)
	log.Printf("INFO: class %s imported: %d new, %d existing, %d errors",
		result.Class.ID, result.NewStudents, result.AddedToExisting, result.Errors)
	return result, nil
}

func (s *ClassService) enrol(ctx context.Context, tx *sql.Tx, classID string, entries []roster.Entry, result *model.ImportResult) error {
	seen := make(map[string]bool)
	for _, e := range entries {
		e = e.Clean()
		if e.Email != "" {
			if seen[e.Email] {
				result.AddedToExisting++
				continue
			}
			seen[e.Email] = true

			existing, err := s.userRepo.FindByEmail(ctx, tx, e.Email)
			if err != nil && !errors.Is(err, common.ErrNotFound) {
				return err
			}
			if existing != nil {
				if existing.Role != model.RoleStudent {
					result.Errors++
					result.ErrorMessages = append(result.ErrorMessages,
						fmt.Sprintf("%s: %s belongs to a %s account", e.Name, e.Email, existing.Role))
					continue
				}
				if err := s.userRepo.AddToClass(ctx, tx, existing.ID, classID); err != nil {
					return err
				}
				result.AddedToExisting++
				continue
			}
		}

		student := &model.User{
			ID:        uuid.NewString(),
			Role:      model.RoleStudent,
			Status:    model.UserStatusActive,
			Name:      e.Name,
			Email:     e.Email,
			StudentNo: e.StudentNo,
			Program:   e.Program,
			Gender:    e.Gender,
			Year:      e.Year,
			ContactNo: e.ContactNo,
			ClassIDs:  []string{classID},
		}
		if err := s.userRepo.Create(ctx, tx, student); err != nil {
			return err
		}
		result.NewStudents++
	}
	return nil
}

// uploadOriginal stores the raw classlist. Failures are logged, not fatal.
// attachOriginal stores the uploaded file once the class exists. A failed
// upload leaves the class without a source file.
func (s *ClassService) attachOriginal(ctx context.Context, class *model.Class, req ImportClassRequest) {
	if s.files == nil {
		return
	}
	key := path.Join("classlists", class.TeacherID, class.ID, path.Base(req.FileName))
	url, err := s.files.Upload(ctx, key, bytes.NewReader(req.Data))
	if err != nil {
		log.Printf("WARN: failed to store classlist %s: %v", key, err)
		return
	}
	if url == "" {
		return
	}
	class.SourceFileURL = url
	if err := s.classRepo.SetSourceFileURL(ctx, class.ID, url); err != nil {
		log.Printf("WARN: failed to record classlist url for class %s: %v", class.ID, err)
	}
}

func (s *ClassService) ListClasses(ctx context.Context, teacherID string) ([]*model.Class, error) {
	return s.classRepo.ListByTeacher(ctx, teacherID, model.ClassStatusActive)
}

func (s *ClassService) ownedClass(ctx context.Context, teacherID, classID string) (*model.Class, error) {
	class, err := s.classRepo.FindByID(ctx, classID)
	if err != nil {
		return nil, err
	}
	if class.TeacherID != teacherID {
		return nil, fmt.Errorf("class belongs to another teacher: %w", common.ErrForbidden)
	}
	return class, nil
}

func (s *ClassService) GetClass(ctx context.Context, teacherID, classID string) (*model.ClassDetail, error) {
	class, err := s.ownedClass(ctx, teacherID, classID)
	if err != nil {
		return nil, err
	}
	students, err := s.userRepo.ListByClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	for _, st := range students {
		st.HashedPassword = ""
	}
	return &model.ClassDetail{Class: class, Students: students}, nil
}

func (s *ClassService) ArchiveClass(ctx context.Context, teacherID, classID string) (*model.ArchivedClass, error) {
	class, err := s.ownedClass(ctx, teacherID, classID)
	if err != nil {
		return nil, err
	}
	if class.Status == model.ClassStatusArchived {
		return nil, fmt.Errorf("class is already archived: %w", common.ErrConflict)
	}
	teacher, err := s.userRepo.FindByID(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	class.Status = model.ClassStatusArchived
	archived := &model.ArchivedClass{
		Class:      *class,
		OriginalID: class.ID,
		ArchivedAt: s.now(),
		ArchivedBy: teacher.Email,
	}
	err = s.txm.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.classRepo.Update(ctx, tx, class); err != nil {
			return err
		}
		return s.archiveRepo.SaveClass(ctx, tx, archived)
	})
	if err != nil {
		return nil, err
	}
	return archived, nil
}

func (s *ClassService) ListArchivedClasses(ctx context.Context, teacherID string) ([]*model.ArchivedClass, error) {
	return s.archiveRepo.ListClasses(ctx, teacherID)
}

func (s *ClassService) ownedArchive(ctx context.Context, teacherID, id string) (*model.ArchivedClass, error) {
	archived, err := s.archiveRepo.FindClass(ctx, id)
	if err != nil {
		return nil, err
	}
	if archived.TeacherID != teacherID {
		return nil, fmt.Errorf("class belongs to another teacher: %w", common.ErrForbidden)
	}
	return archived, nil
}

func (s *ClassService) RestoreClass(ctx context.Context, teacherID, id string) (*model.Class, error) {
	archived, err := s.ownedArchive(ctx, teacherID, id)
	if err != nil {
		return nil, err
	}
	var class *model.Class
	err = s.txm.WithTx(ctx, func(tx *sql.Tx) error {
		class, err = s.classRepo.FindByID(ctx, archived.OriginalID)
		if err != nil {
			return err
		}
		class.Status = model.ClassStatusActive
		if err := s.classRepo.Update(ctx, tx, class); err != nil {
			return err
		}
		return s.archiveRepo.DeleteClass(ctx, tx, id)
	})
	if err != nil {
		return nil, err
	}
	return class, nil
}

// DeleteArchivedClass removes the class for good. Student accounts are kept.
func (s *ClassService) DeleteArchivedClass(ctx context.Context, teacherID, id string) error {
	archived, err := s.ownedArchive(ctx, teacherID, id)
	if err != nil {
		return err
	}
	return s.txm.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.archiveRepo.DeleteClass(ctx, tx, id); err != nil {
			return err
		}
		return s.classRepo.Delete(ctx, tx, archived.OriginalID)
	})
}
