// Package protocol implements the line-oriented wire format spoken between
// the ticketing server and its clients.  A message is an integer opcode
// followed by pipe-terminated fields and a newline:
//
//	302|4|2|2024-05-01 16:00:00||
//
// A literal backslash, pipe or newline inside a field is escaped as \\, \|
// or \n.  Responses use OpOK with result fields or OpError with a single
// "<Kind>: <message>" field.
package protocol

import (
	"slices"
	"strconv"
)

// Op is a request or response code.
type Op int

// Authentication.
const (
	OpLogin    Op = 100
	OpLogout   Op = 101
	OpRegister Op = 102
)

// Movies.
const (
	OpMovieList        Op = 200
	OpMovieGet         Op = 201
	OpMovieCreate      Op = 202
	OpMovieUpdate      Op = 203
	OpMovieDelete      Op = 204
	OpMovieSearchTitle Op = 205
	OpMovieSearchGenre Op = 206
)

// Showtimes.
const (
	OpShowtimeList    Op = 300
	OpShowtimeGet     Op = 301
	OpShowtimeCreate  Op = 302
	OpShowtimeUpdate  Op = 303
	OpShowtimeDelete  Op = 304
	OpShowtimeByMovie Op = 305
	OpShowtimeByRoom  Op = 306
	OpShowtimeByDate  Op = 307
)

// Rooms and seats.
const (
	OpRoomList      Op = 400
	OpRoomGet       Op = 401
	OpSeatsByRoom   Op = 402
	OpRoomCreate    Op = 403
	OpRoomDelete    Op = 404
	OpRoomFreeSeats Op = 405
	OpRoomUpdate    Op = 406
)

// Tickets and sales.
const (
	OpTicketCreate       Op = 500
	OpTicketAvailability Op = 501
	OpSaleCreate         Op = 502
	OpSaleListByUser     Op = 503
	OpSaleGet            Op = 504
	OpSaleGetTickets     Op = 505
	OpSaleCancel         Op = 506
)

// Responses.
const (
	OpOK    Op = 900
	OpError Op = 901
)

var opNames = map[Op]string{
	OpLogin: "LOGIN", OpLogout: "LOGOUT", OpRegister: "REGISTER",
	OpMovieList: "MOVIE_LIST", OpMovieGet: "MOVIE_GET", OpMovieCreate: "MOVIE_CREATE",
	OpMovieUpdate: "MOVIE_UPDATE", OpMovieDelete: "MOVIE_DELETE",
	OpMovieSearchTitle: "MOVIE_SEARCH_TITLE", OpMovieSearchGenre: "MOVIE_SEARCH_GENRE",
	OpShowtimeList: "SHOWTIME_LIST", OpShowtimeGet: "SHOWTIME_GET", OpShowtimeCreate: "SHOWTIME_CREATE",
	OpShowtimeUpdate: "SHOWTIME_UPDATE", OpShowtimeDelete: "SHOWTIME_DELETE",
	OpShowtimeByMovie: "SHOWTIME_BY_MOVIE", OpShowtimeByRoom: "SHOWTIME_BY_ROOM", OpShowtimeByDate: "SHOWTIME_BY_DATE",
	OpRoomList: "ROOM_LIST", OpRoomGet: "ROOM_GET", OpSeatsByRoom: "SEATS_BY_ROOM",
	OpRoomCreate: "ROOM_CREATE", OpRoomDelete: "ROOM_DELETE", OpRoomFreeSeats: "ROOM_FREE_SEATS",
	OpRoomUpdate: "ROOM_UPDATE",
	OpTicketCreate: "TICKET_CREATE", OpTicketAvailability: "TICKET_AVAILABILITY",
	OpSaleCreate: "SALE_CREATE", OpSaleListByUser: "SALE_LIST_BY_USER", OpSaleGet: "SALE_GET",
	OpSaleGetTickets: "SALE_GET_TICKETS", OpSaleCancel: "SALE_CANCEL",
	OpOK: "OK", OpError: "ERROR",
}

func (o Op) String() string {
	if n, ok := opNames[o]; ok {
		return n
	}
	return "OP_" + strconv.Itoa(int(o))
}

// LookupOp returns the opcode with the given name, such as "MOVIE_LIST".
func LookupOp(name string) (Op, bool) {
	for op, n := range opNames {
		if n == name {
			return op, true
		}
	}
	return 0, false
}

// RequestNames lists the names of every request opcode in numeric order.
func RequestNames() []string {
	ops := make([]Op, 0, len(opNames))
	for op := range opNames {
		if op < OpOK {
			ops = append(ops, op)
		}
	}
	slices.Sort(ops)
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = opNames[op]
	}
	return names
}
