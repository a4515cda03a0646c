package project

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Alijeyrad/destek_backend/internal/model"
	"github.com/Alijeyrad/destek_backend/internal/repo"
	"github.com/Alijeyrad/destek_backend/internal/service/audit"
)

type Request struct {
	Name   string
	Blocks []model.Block
}

type Service interface {
	Create(ctx context.Context, caller model.Actor, req Request) (*model.Project, error)
	Get(ctx context.Context, id string) (*model.Project, error)
	List(ctx context.Context) ([]*model.Project, error)
	Update(ctx context.Context, caller model.Actor, id string, req Request) (*model.Project, error)
	Delete(ctx context.Context, caller model.Actor, id string) error
}

type projectService struct {
	db    *repo.Client
	audit audit.Service
}

func New(db *repo.Client, a audit.Service) Service {
	return &projectService{db: db, audit: a}
}

func (s *projectService) Create(ctx context.Context, caller model.Actor, req Request) (*model.Project, error) {
	if !caller.Role.IsAdmin() {
		return nil, ErrForbidden
	}
	p, err := build(req)
	if err != nil {
		return nil, err
	}
	p.ID = uuid.Must(uuid.NewV7()).String()

	if err := s.db.Projects.Create(ctx, p); err != nil {
		if repo.IsConflict(err) {
			return nil, ErrNameTaken
		}
		return nil, fmt.Errorf("create project: %w", err)
	}
	s.log(ctx, model.AuditProjectCreated, caller, p)
	return p, nil
}

func (s *projectService) Get(ctx context.Context, id string) (*model.Project, error) {
	p, err := s.db.Projects.Get(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

func (s *projectService) List(ctx context.Context) ([]*model.Project, error) {
	ps, err := s.db.Projects.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return ps, nil
}

// Update replaces the name and the full block list.
func (s *projectService) Update(ctx context.Context, caller model.Actor, id string, req Request) (*model.Project, error) {
	if !caller.Role.IsAdmin() {
		return nil, ErrForbidden
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	p, err := build(req)
	if err != nil {
		return nil, err
	}
	p.ID = id

	if err := s.db.Projects.Update(ctx, p); err != nil {
		switch {
		case repo.IsConflict(err):
			return nil, ErrNameTaken
		case repo.IsNotFound(err):
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update project: %w", err)
	}
	s.log(ctx, model.AuditProjectUpdated, caller, p)
	return p, nil
}

func (s *projectService) Delete(ctx context.Context, caller model.Actor, id string) error {
	if !caller.Role.IsAdmin() {
		return ErrForbidden
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.Projects.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	s.log(ctx, model.AuditProjectDeleted, caller, p)
	return nil
}

func build(req Request) (*model.Project, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	blocks := make([]model.Block, 0, len(req.Blocks))
	for _, b := range req.Blocks {
		bn := strings.TrimSpace(b.Name)
		if bn == "" {
			return nil, ErrInvalidBlock
		}
		units := make([]string, 0, len(b.Units))
		for _, u := range b.Units {
			if u = strings.TrimSpace(u); u != "" {
				units = append(units, u)
			}
		}
		blocks = append(blocks, model.Block{Name: bn, Units: units})
	}
	return &model.Project{Name: name, Blocks: blocks}, nil
}

func (s *projectService) log(ctx context.Context, action model.AuditAction, caller model.Actor, p *model.Project) {
	s.audit.Log(ctx, audit.Entry{
		Action:     action,
		Actor:      caller,
		TargetID:   p.ID,
		TargetType: "project",
		Details:    map[string]any{"name": p.Name, "blocks": len(p.Blocks)},
	})
}
