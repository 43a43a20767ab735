package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/csi-attendance-api/internal/models"
	"github.com/noah-isme/csi-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/csi-attendance-api/pkg/errors"
)

// Id prefixes per entity.
const (
	classIDPrefix        = "cls"
	sessionIDPrefix      = "sess"
	notificationIDPrefix = "ntf"
)

type classReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type sessionReader interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
}

type attendanceLister interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error)
}

// AttendanceOptions toggles the checks applied to session and attendance writes.
type AttendanceOptions struct {
	EnforceOwnership      bool
	EnforceRoster         bool
	DefaultSessionMinutes int
}

func newID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}

// newValidator registers the domain tags on validate, creating one when nil.
func newValidator(validate *validator.Validate) *validator.Validate {
	if validate == nil {
		validate = validator.New()
	}
	_ = validate.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return models.AttendanceStatus(fl.Field().String()).Valid()
	})
	_ = validate.RegisterValidation("report_format", func(fl validator.FieldLevel) bool {
		return ReportFormat(fl.Field().String()).Valid()
	})
	return validate
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

// lookupError maps a store miss to NotFound and anything else to Internal.
func lookupError(err error, notFound, internal string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Internal(err, internal)
}

// requireOwner rejects a missing issuer with Unauthorized and a foreign one with Forbidden.
func requireOwner(ownerID, issuerID, message string) error {
	if issuerID == "" {
		return appErrors.Clone(appErrors.ErrUnauthorized, "issuer identity required")
	}
	if ownerID != issuerID {
		return appErrors.Clone(appErrors.ErrForbidden, message)
	}
	return nil
}

func storeTimer(metrics *MetricsService, operation string) func() {
	start := time.Now()
	return func() {
		metrics.ObserveStore(operation, time.Since(start))
	}
}

func roundTo(value float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(value*scale) / scale
}

func percentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func stringPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// keyedMutex serialises work per key. Entries are dropped once no goroutine holds or waits on them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock blocks until key is free and returns the matching unlock.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
