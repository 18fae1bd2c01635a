package service

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// Repos bundles the repositories the services share.
type Repos struct {
	DB        *sql.DB
	Rooms     *repository.RoomRepo
	Seats     *repository.SeatRepo
	Movies    *repository.MovieRepo
	Showtimes *repository.ShowtimeRepo
	Tickets   *repository.TicketRepo
	Sales     *repository.SaleRepo
	Users     *repository.UserRepo
}

// NewRepos builds every repository over db.
func NewRepos(db *sql.DB) Repos {
	return Repos{
		DB:        db,
		Rooms:     repository.NewRoomRepo(db),
		Seats:     repository.NewSeatRepo(db),
		Movies:    repository.NewMovieRepo(db),
		Showtimes: repository.NewShowtimeRepo(db),
		Tickets:   repository.NewTicketRepo(db),
		Sales:     repository.NewSaleRepo(db),
		Users:     repository.NewUserRepo(db),
	}
}

// inTx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise.
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
