// Package http exposes the room reservation API.
//
// Routes (all JSON unless noted):
//   - POST /sessions: body {"member_id","password","role"}. Issues a session
//     token returned in the body, the X-Session-Token header and a
//     session_token cookie. Student logins also carry any voided-booking notice.
//   - DELETE /sessions/current: revokes the caller's session.
//   - GET /reservations: the caller's bookings from today on.
//   - POST /reservations: body {"date","start_time","end_time","note"}.
//   - DELETE /reservations/:date/:start: cancels the caller's booking.
//   - POST /reconcile: voids the caller's bookings displaced by classes.
//     Students only.
//   - GET /classes, POST /classes, DELETE /classes?name=&start=: class
//     series management. Registration and cancellation require the teacher role.
//   - GET /room/status: whether the room is occupied right now.
//   - GET /calendar.ics?from=&to=: the room calendar as text/calendar.
//
// POST routes honour an Idempotency-Key header when an idempotency store is
// configured. Request DTOs live alongside their handlers.
package http
