package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/auth"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
	"github.com/Shivanand-hulikatti/campus-events/internal/service"
	"github.com/urfave/cli/v2"
)

type featuredEvent struct {
	organizer  string
	email      string
	department string
	request    model.CreateEventRequest
	daysAhead  int
}

var featuredEvents = []featuredEvent{
	{
		organizer:  "Dr. Sarah Johnson",
		email:      "sarah.johnson@college.edu",
		department: "Computer Science",
		daysAhead:  30,
		request: model.CreateEventRequest{
			Title:       "Annual Tech Symposium",
			Description: "Technology talks, hands-on coding workshops and networking with industry experts on software development, AI and cloud computing.",
			Category:    "Technical",
			Location:    "Main Auditorium",
			Image:       "https://images.unsplash.com/photo-1540575467063-178a50c2df87?auto=format&fit=crop&q=80&w=1000",
			Capacity:    intPtr(200),
		},
	},
	{
		organizer:  "Prof. Michael Chen",
		email:      "michael.chen@college.edu",
		department: "Fine Arts",
		daysAhead:  45,
		request: model.CreateEventRequest{
			Title:       "Cultural Fest",
			Description: "Music, dance and art performances. Showcase your talents and celebrate creativity with the whole campus.",
			Category:    "Cultural",
			Location:    "College Amphitheater",
			Image:       "https://images.unsplash.com/photo-1492684223066-81342ee5ff30?auto=format&fit=crop&q=80&w=1000",
			Capacity:    intPtr(500),
		},
	},
	{
		organizer:  "Dr. Emily Martinez",
		email:      "emily.martinez@college.edu",
		department: "Research Office",
		daysAhead:  60,
		request: model.CreateEventRequest{
			Title:       "Research Conference",
			Description: "Present your research, attend keynote speeches and join panel discussions with leading academics.",
			Category:    "Academic",
			Location:    "Research Center",
			Image:       "https://images.unsplash.com/photo-1515187029135-18ee286d815b?auto=format&fit=crop&q=80&w=1000",
			Capacity:    intPtr(150),
		},
	},
}

func intPtr(n int) *int { return &n }

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Create demo faculty accounts and the featured events.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "password",
				Value:   "campus-demo-123",
				Usage:   "password for the demo faculty accounts",
				EnvVars: []string{"SEED_PASSWORD"},
			},
		},
		Action: func(c *cli.Context) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			st, err := openStores(c.Context, cfg, logger)
			if err != nil {
				return err
			}
			defer st.close()

			// Seeding never verifies tokens, so any signing key will do.
			tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
			s := seeder{
				accounts: service.NewAuthService(st.users, tokens),
				events:   service.NewEventService(st.events, st.users),
				users:    st.users,
				logger:   logger,
				password: c.String("password"),
			}
			return s.run(c.Context, time.Now())
		},
	}
}

type seeder struct {
	accounts *service.AuthService
	events   *service.EventService
	users    repository.UserStore
	logger   *slog.Logger
	password string
}

// run is idempotent: existing accounts are reused and events whose title
// the organizer already has are skipped.
func (s seeder) run(ctx context.Context, now time.Time) error {
	for _, f := range featuredEvents {
		organizer, err := s.faculty(ctx, f)
		if err != nil {
			return err
		}

		existing, err := s.events.ListFacultyEvents(ctx, organizer)
		if err != nil {
			return err
		}
		if slices.ContainsFunc(existing, func(e model.EventView) bool { return e.Title == f.request.Title }) {
			s.logger.Info("event already seeded", "title", f.request.Title)
			continue
		}

		req := f.request
		date := now.UTC().AddDate(0, 0, f.daysAhead).Truncate(24 * time.Hour).Add(10 * time.Hour)
		req.Date = date.Format(time.RFC3339)
		ev, err := s.events.CreateEvent(ctx, organizer, req)
		if err != nil {
			return fmt.Errorf("seed %q: %w", f.request.Title, err)
		}
		s.logger.Info("seeded event", "id", ev.ID, "title", ev.Title, "date", ev.Date)
	}
	return nil
}

func (s seeder) faculty(ctx context.Context, f featuredEvent) (auth.Identity, error) {
	resp, err := s.accounts.Signup(ctx, model.SignupRequest{
		Name:       f.organizer,
		Email:      f.email,
		Password:   s.password,
		Role:       model.RoleFaculty,
		Department: f.department,
	})
	if err == nil {
		s.logger.Info("created faculty account", "email", f.email)
		return identityOf(resp.User), nil
	}
	if !errors.Is(err, repository.ErrEmailTaken) {
		return auth.Identity{}, fmt.Errorf("seed account %s: %w", f.email, err)
	}
	u, err := s.users.GetByEmail(ctx, f.email)
	if err != nil {
		return auth.Identity{}, fmt.Errorf("seed account %s: %w", f.email, err)
	}
	if u.Role != model.RoleFaculty {
		return auth.Identity{}, fmt.Errorf("seed account %s exists with role %s", f.email, u.Role)
	}
	return identityOf(u), nil
}

func identityOf(u *model.User) auth.Identity {
	return auth.Identity{UserID: u.ID, Role: u.Role, Name: u.Name}
}
