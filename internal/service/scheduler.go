package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-ticketing/internal/metrics"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// DefaultCleanupMinutes is the gap added after a movie before the room can
// host the next showtime.
const DefaultCleanupMinutes = 15

// Scheduler validates and stores showtimes.  No two showtimes of one room
// may have overlapping [start, end) intervals.
type Scheduler struct {
	db        *sql.DB
	showtimes *repository.ShowtimeRepo
	movies    *repository.MovieRepo
	rooms     *repository.RoomRepo
	cleanup   int
	metrics   *metrics.Metrics
	log       *zap.Logger
}

// NewScheduler returns a scheduler.  cleanupMinutes < 0 falls back to
// DefaultCleanupMinutes.
func NewScheduler(r Repos, cleanupMinutes int, m *metrics.Metrics, log *zap.Logger) *Scheduler {
	if cleanupMinutes < 0 {
		cleanupMinutes = DefaultCleanupMinutes
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		db:        r.DB,
		showtimes: r.Showtimes,
		movies:    r.Movies,
		rooms:     r.Rooms,
		cleanup:   cleanupMinutes,
		metrics:   m,
		log:       log,
	}
}

// ComputeEndFromDuration returns start + duration + cleanup minutes.
func ComputeEndFromDuration(start time.Time, durationMinutes, cleanupMinutes int) time.Time {
	return start.Add(time.Duration(durationMinutes+cleanupMinutes) * time.Minute)
}

// Create validates st and stores it, assigning st.ID.
func (s *Scheduler) Create(ctx context.Context, st *model.Showtime) error {
	return s.save(ctx, st, false)
}

// CreateFromDuration schedules movieID in roomID at start, deriving the end
// from the movie duration and the configured cleanup.
func (s *Scheduler) CreateFromDuration(ctx context.Context, movieID, roomID uint64, start time.Time) (*model.Showtime, error) {
	movie, err := s.movies.GetByID(ctx, movieID)
	if err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return nil, invalid("movie %d does not exist", movieID)
		}
		return nil, classify(err)
	}
	st := &model.Showtime{
		MovieID:  movieID,
		RoomID:   roomID,
		StartsAt: start,
		EndsAt:   ComputeEndFromDuration(start, movie.DurationMinutes, s.cleanup),
	}
	if err := s.Create(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Update overwrites an existing showtime.  The overlap scan skips the
// showtime itself.
func (s *Scheduler) Update(ctx context.Context, st *model.Showtime) error {
	if st.ID == 0 {
		return invalid("showtime id is required")
	}
	if _, err := s.showtimes.GetByID(ctx, st.ID); err != nil {
		return classify(err)
	}
	return s.save(ctx, st, true)
}

func (s *Scheduler) validate(ctx context.Context, st *model.Showtime) error {
	var p problems
	if st.MovieID == 0 {
		p.addf("movie id is required")
	}
	if st.RoomID == 0 {
		p.addf("room id is required")
	}
	if st.StartsAt.IsZero() || st.EndsAt.IsZero() {
		p.addf("start and end are required")
	} else if !st.EndsAt.After(st.StartsAt) {
		p.addf("end must be after start")
	}
	if st.MovieID != 0 {
		if _, err := s.movies.GetByID(ctx, st.MovieID); errors.Is(err, repository.ErrMovieNotFound) {
			p.addf("movie %d does not exist", st.MovieID)
		} else if err != nil {
			return classify(err)
		}
	}
	if st.RoomID != 0 {
		if _, err := s.rooms.GetByID(ctx, st.RoomID); errors.Is(err, repository.ErrRoomNotFound) {
			p.addf("room %d does not exist", st.RoomID)
		} else if err != nil {
			return classify(err)
		}
	}
	return p.err()
}

func (s *Scheduler) save(ctx context.Context, st *model.Showtime, update bool) error {
	st.StartsAt = st.StartsAt.UTC().Truncate(time.Second)
	st.EndsAt = st.EndsAt.UTC().Truncate(time.Second)
	if err := s.validate(ctx, st); err != nil {
		return err
	}
	var exclude uint64
	if update {
		exclude = st.ID
	}
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		// serializes writers of the same room until commit
		if err := s.rooms.LockTx(ctx, tx, st.RoomID); err != nil {
			return err
		}
		if update {
			if err := s.checkRoomMove(ctx, tx, st); err != nil {
				return err
			}
		}
		clash, err := s.showtimes.FindOverlappingTx(ctx, tx, st.RoomID,
			model.FormatTime(st.StartsAt), model.FormatTime(st.EndsAt), exclude)
		if err != nil {
			return err
		}
		if len(clash) > 0 {
			return conflictError(st.RoomID, clash)
		}
		if update {
			return s.showtimes.UpdateTx(ctx, tx, st)
		}
		return s.showtimes.CreateTx(ctx, tx, st)
	})
	if err != nil {
		err = classify(err)
		if Kind(err) == "RoomConflict" {
			s.metrics.ShowtimeConflict()
			s.log.Info("showtime rejected", zap.Uint64("room_id", st.RoomID), zap.Error(err))
		}
		return err
	}
	s.log.Info("showtime saved",
		zap.Uint64("showtime_id", st.ID),
		zap.Uint64("room_id", st.RoomID),
		zap.String("starts_at", model.FormatTime(st.StartsAt)),
		zap.Bool("update", update))
	return nil
}

// checkRoomMove refuses to move a showtime with sold tickets to another
// room; its tickets would name seats outside the showtime's room.
func (s *Scheduler) checkRoomMove(ctx context.Context, tx *sql.Tx, st *model.Showtime) error {
	cur, err := s.showtimes.GetByIDTx(ctx, tx, st.ID)
	if err != nil {
		return err
	}
	if cur.RoomID == st.RoomID {
		return nil
	}
	sold, err := s.showtimes.HasTicketsTx(ctx, tx, st.ID)
	if err != nil {
		return err
	}
	if sold {
		return fmt.Errorf("%w: showtime %d has sold tickets and cannot change room", ErrInUse, st.ID)
	}
	return nil
}

func conflictError(roomID uint64, clash []model.Showtime) error {
	parts := make([]string, 0, len(clash))
	for _, c := range clash {
		parts = append(parts, fmt.Sprintf("#%d %s-%s", c.ID, model.FormatTime(c.StartsAt), model.FormatTime(c.EndsAt)))
	}
	return fmt.Errorf("%w: room %d is booked by showtime %s", ErrRoomConflict, roomID, strings.Join(parts, ", "))
}

// CheckAvailability reports whether st's room is free for st's interval,
// ignoring st itself when it has an ID.
func (s *Scheduler) CheckAvailability(ctx context.Context, st *model.Showtime) (bool, error) {
	if st.RoomID == 0 || !st.EndsAt.After(st.StartsAt) {
		return false, invalid("room and a positive interval are required")
	}
	var clash []model.Showtime
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		clash, err = s.showtimes.FindOverlappingTx(ctx, tx, st.RoomID,
			model.FormatTime(st.StartsAt.UTC()), model.FormatTime(st.EndsAt.UTC()), st.ID)
		return err
	})
	if err != nil {
		return false, classify(err)
	}
	return len(clash) == 0, nil
}

// Delete removes a showtime.  Showtimes with sold tickets are kept and
// ErrInUse is returned; cancel the sales first.
func (s *Scheduler) Delete(ctx context.Context, id uint64) error {
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := s.showtimes.GetByIDTx(ctx, tx, id); err != nil {
			return err
		}
		sold, err := s.showtimes.HasTicketsTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if sold {
			return fmt.Errorf("%w: showtime %d has sold tickets", ErrInUse, id)
		}
		return s.showtimes.DeleteTx(ctx, tx, id)
	})
	if err != nil {
		return classify(err)
	}
	s.log.Info("showtime deleted", zap.Uint64("showtime_id", id))
	return nil
}

func (s *Scheduler) Get(ctx context.Context, id uint64) (*model.Showtime, error) {
	st, err := s.showtimes.GetByID(ctx, id)
	return st, classify(err)
}

// List returns all showtimes ordered by start.
func (s *Scheduler) List(ctx context.Context) ([]model.Showtime, error) {
	list, err := s.showtimes.List(ctx)
	return list, classify(err)
}

func (s *Scheduler) ListByMovie(ctx context.Context, movieID uint64) ([]model.Showtime, error) {
	list, err := s.showtimes.ListByMovie(ctx, movieID)
	return list, classify(err)
}

func (s *Scheduler) ListByRoom(ctx context.Context, roomID uint64) ([]model.Showtime, error) {
	list, err := s.showtimes.ListByRoom(ctx, roomID)
	return list, classify(err)
}

// ListByDate returns showtimes starting with prefix, such as "2024-05-01".
func (s *Scheduler) ListByDate(ctx context.Context, prefix string) ([]model.Showtime, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" || strings.Trim(prefix, "0123456789-: ") != "" {
		return nil, invalid("date prefix %q is not of the form YYYY-MM-DD", prefix)
	}
	list, err := s.showtimes.ListByStartPrefix(ctx, prefix)
	return list, classify(err)
}
