package service

import (
	"context"
	"log/slog"

	"github.com/GoliasVictor/grpg/internal/workspace"
)

// AccountService manages users and their workspaces.
type AccountService struct {
	backend
}

// NewAccountService creates a new AccountService.
func NewAccountService(stores StoreManager, meta Metastore) *AccountService {
	return &AccountService{backend{stores: stores, meta: meta}}
}

func (s *AccountService) AddUser(ctx context.Context, name string) (workspace.User, error) {
	u, err := s.meta.AddUser(ctx, name)
	return u, mapError(err)
}

func (s *AccountService) GetUser(ctx context.Context, id int64) (workspace.User, error) {
	u, err := s.meta.GetUser(ctx, id)
	return u, mapError(err)
}

func (s *AccountService) ListUsers(ctx context.Context) ([]workspace.User, error) {
	users, err := s.meta.ListUsers(ctx)
	return users, mapError(err)
}

// AddWorkspace registers a workspace and provisions its graph store.
func (s *AccountService) AddWorkspace(ctx context.Context, userID int64, name string) (workspace.Workspace, error) {
	w, err := s.meta.AddWorkspace(ctx, userID, name)
	if err != nil {
		return workspace.Workspace{}, mapError(err)
	}
	g, err := s.stores.CreateStore(w.ID)
	if err != nil {
		slog.Error("failed to provision graph store", "workspace", w.ID, "error", err)
		return workspace.Workspace{}, mapError(err)
	}
	g.Release()
	slog.Info("workspace created", "workspace", w.ID, "user", userID)
	return w, nil
}

func (s *AccountService) GetWorkspace(ctx context.Context, id int64) (workspace.Workspace, error) {
	w, err := s.meta.GetWorkspace(ctx, id)
	return w, mapError(err)
}

// ListWorkspaces lists the workspaces of userID, or all of them for zero.
func (s *AccountService) ListWorkspaces(ctx context.Context, userID int64) ([]workspace.Workspace, error) {
	if userID != 0 {
		if _, err := s.meta.GetUser(ctx, userID); err != nil {
			return nil, mapError(err)
		}
	}
	ws, err := s.meta.ListWorkspaces(ctx, userID)
	return ws, mapError(err)
}
