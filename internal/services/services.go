package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/senyabanana/procurement-service/internal/events"
	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/repository"
	"github.com/senyabanana/procurement-service/internal/utils"
)

// Dependencies - общие зависимости всех сервисов.
type Dependencies struct {
	Repo   repository.Repository
	Clock  utils.Clock
	IDs    utils.IDGenerator
	Events events.Publisher
	Logger *log.Logger
}

type core struct {
	Repo   repository.Repository
	clock  utils.Clock
	ids    utils.IDGenerator
	events events.Publisher
	logger *log.Logger
}

func newCore(deps Dependencies) core {
	c := core{
		Repo:   deps.Repo,
		clock:  deps.Clock,
		ids:    deps.IDs,
		events: deps.Events,
		logger: deps.Logger,
	}
	if c.clock == nil {
		c.clock = utils.RealClock{}
	}
	if c.ids == nil {
		c.ids = utils.UUIDGenerator{}
	}
	if c.logger == nil {
		c.logger = log.New(os.Stdout, "INFO: ", log.LstdFlags)
	}
	if c.events == nil {
		c.events = events.NewLogPublisher(c.logger)
	}
	return c
}

func (c *core) now() time.Time {
	return c.clock.Now()
}

// publish отправляет события после фиксации изменений. Ошибка публикации
// только логируется: изменение уже сохранено.
func (c *core) publish(ctx context.Context, evts ...events.Event) {
	if len(evts) == 0 {
		return
	}
	if err := c.events.Publish(ctx, evts...); err != nil {
		c.logger.Printf("failed to publish %d event(s): %v", len(evts), err)
	}
}

func wrap(op, id string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s %s: %w", op, id, err)
}

func requirePrincipal(p models.Principal) error {
	if p.ID == "" || !p.Role.Valid() {
		return models.NewUnauthorizedError("authenticated principal with a valid role is required")
	}
	return nil
}

func requireSeeker(p models.Principal) error {
	if err := requirePrincipal(p); err != nil {
		return err
	}
	if !p.IsSeeker() {
		return models.NewUnauthorizedError("operation is available to seekers only")
	}
	return nil
}

func requireProvider(p models.Principal) error {
	if err := requirePrincipal(p); err != nil {
		return err
	}
	if !p.IsProvider() {
		return models.NewUnauthorizedError("operation is available to providers only")
	}
	return nil
}

func requireOwner(sr *models.ServiceRequest, p models.Principal) error {
	if err := requireSeeker(p); err != nil {
		return err
	}
	if !sr.OwnedBy(p) {
		return models.NewUnauthorizedError("you are not authorized to manage service request %s", sr.ID)
	}
	return nil
}

func laterOf(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
