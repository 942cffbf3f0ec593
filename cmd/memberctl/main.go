// Command memberctl administers member accounts and seeds the room calendar.
//
//	memberctl [-db path] add -id s001 -name 山田 -role student -password ...
//	memberctl [-db path] list
//	memberctl [-db path] import-ics calendar.ics
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/example/room-reservation/internal/application"
	"github.com/example/room-reservation/internal/calendar"
	"github.com/example/room-reservation/internal/config"
	"github.com/example/room-reservation/internal/logging"
	"github.com/example/room-reservation/internal/persistence/adapter"
	"github.com/example/room-reservation/internal/persistence/sqlite"
	"github.com/example/room-reservation/internal/persistence/sqlite/migration"
)

var errUsage = errors.New("usage: memberctl [-db path] <add|list|import-ics> [flags]")

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "failed to read .env file:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New(os.Getenv("RESERVATION_LOG_LEVEL"))
	if err := run(ctx, os.Args[1:], os.Stdout, logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type tool struct {
	storage  *sqlite.Storage
	members  *application.MemberService
	calendar *adapter.Calendar
	out      io.Writer
}

func run(ctx context.Context, args []string, out io.Writer, logger *slog.Logger) error {
	global := flag.NewFlagSet("memberctl", flag.ContinueOnError)
	global.SetOutput(out)
	dsn := global.String("db", "", "SQLite database path (defaults to RESERVATION_SQLITE_DSN)")
	tz := global.String("tz", "", "timezone for imported events (defaults to RESERVATION_TIMEZONE)")
	if err := global.Parse(args); err != nil {
		return err
	}
	rest := global.Args()
	if len(rest) == 0 {
		return errUsage
	}

	loc := time.Local
	if *dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		*dsn = cfg.SQLiteDSN
		loc = cfg.Location
	}
	if *tz != "" {
		l, err := time.LoadLocation(*tz)
		if err != nil {
			return fmt.Errorf("invalid timezone %q: %w", *tz, err)
		}
		loc = l
	}

	storage, err := sqlite.Open(migration.DefaultSQLiteConfig(*dsn))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer storage.Close()
	if err := storage.Migrate(ctx, logger); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	t := &tool{
		storage:  storage,
		members:  application.NewMemberServiceWithLogger(adapter.NewMembers(storage.Members), application.HashPassword, time.Now, logger),
		calendar: adapter.NewCalendar(storage.Events, loc, uuid.NewString),
		out:      out,
	}

	switch rest[0] {
	case "add":
		return t.add(ctx, rest[1:])
	case "list":
		return t.list(ctx)
	case "import-ics":
		return t.importICS(ctx, rest[1:])
	default:
		return fmt.Errorf("unknown command %q\n%w", rest[0], errUsage)
	}
}

func (t *tool) add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(t.out)
	id := fs.String("id", "", "member id")
	name := fs.String("name", "", "display name")
	role := fs.String("role", "student", "student or teacher")
	password := fs.String("password", "", "initial password (defaults to MEMBERCTL_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		*password = os.Getenv("MEMBERCTL_PASSWORD")
	}

	member, err := t.members.CreateMember(ctx, application.CreateMemberParams{
		ID:          *id,
		DisplayName: *name,
		Role:        application.Role(*role),
		Password:    *password,
	})
	if err != nil {
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			fields := make([]string, 0, len(vErr.FieldErrors))
			for field := range vErr.FieldErrors {
				fields = append(fields, field)
			}
			sort.Strings(fields)
			for _, field := range fields {
				fmt.Fprintf(t.out, "  %s: %s\n", field, vErr.FieldErrors[field])
			}
		}
		return fmt.Errorf("add member: %w", err)
	}
	fmt.Fprintf(t.out, "created %s (%s, %s)\n", member.ID, member.DisplayName, member.Role.Label())
	return nil
}

func (t *tool) list(ctx context.Context) error {
	members, err := t.members.ListMembers(ctx)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	w := tabwriter.NewWriter(t.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tROLE")
	for _, m := range members {
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.ID, m.DisplayName, m.Role.Label())
	}
	return w.Flush()
}

// importICS copies VEVENTs into the calendar store. Events that already exist
// with the same title and start are skipped so the import can be rerun.
func (t *tool) importICS(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("import-ics needs exactly one file\n%w", errUsage)
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	events, err := calendar.ReadICS(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	var imported, skipped int
	for _, ev := range events {
		existing, err := t.calendar.EventsOverlapping(ctx, ev.Start, ev.End)
		if err != nil {
			return fmt.Errorf("read calendar: %w", err)
		}
		if containsEvent(existing, ev) {
			skipped++
			continue
		}
		if _, err := t.calendar.CreateEvent(ctx, ev); err != nil {
			return fmt.Errorf("create event %q: %w", ev.Title, err)
		}
		imported++
	}
	fmt.Fprintf(t.out, "imported %d events, skipped %d\n", imported, skipped)
	return nil
}

func containsEvent(events []calendar.Event, ev calendar.NewEvent) bool {
	for _, e := range events {
		if e.Title == ev.Title && e.Start.Equal(ev.Start) && e.End.Equal(ev.End) {
			return true
		}
	}
	return false
}
