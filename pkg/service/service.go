// Package service holds the use cases behind the HTTP, MCP and CLI surfaces.
package service

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/GoliasVictor/grpg/internal/manager"
	"github.com/GoliasVictor/grpg/internal/workspace"
	"github.com/GoliasVictor/grpg/pkg/common/errors"
	"github.com/GoliasVictor/grpg/pkg/graph"
	"github.com/GoliasVictor/grpg/pkg/table"
)

// StoreManager opens workspace graphs. Returned stores are leased and must
// be released by the caller.
type StoreManager interface {
	GetStore(workspaceID int64) (*graph.Store, error)
	CreateStore(workspaceID int64) (*graph.Store, error)
}

// Metastore persists users, workspaces and saved table definitions.
type Metastore interface {
	AddUser(ctx context.Context, name string) (workspace.User, error)
	GetUser(ctx context.Context, id int64) (workspace.User, error)
	ListUsers(ctx context.Context) ([]workspace.User, error)

	AddWorkspace(ctx context.Context, userID int64, name string) (workspace.Workspace, error)
	GetWorkspace(ctx context.Context, id int64) (workspace.Workspace, error)
	ListWorkspaces(ctx context.Context, userID int64) ([]workspace.Workspace, error)

	AddTable(ctx context.Context, workspaceID int64, def table.TableDefinition) (int64, error)
	SetTable(ctx context.Context, workspaceID, id int64, def table.TableDefinition) error
	GetTable(ctx context.Context, workspaceID, id int64) (table.TableDefinition, error)
	ListTables(ctx context.Context, workspaceID int64) ([]workspace.StoredTable, error)
	RemoveTable(ctx context.Context, workspaceID, id int64) (table.TableDefinition, error)
}

// backend is shared by the services that reach a workspace graph.
type backend struct {
	stores StoreManager
	meta   Metastore
}

// graphFor resolves the graph of an existing workspace, provisioning its
// directory on first use. The caller releases the returned store.
func (b *backend) graphFor(ctx context.Context, workspaceID int64) (*graph.Store, error) {
	if workspaceID <= 0 {
		return nil, fmt.Errorf("%w: invalid workspace id %d", errors.ErrInvalidInput, workspaceID)
	}
	if _, err := b.meta.GetWorkspace(ctx, workspaceID); err != nil {
		return nil, mapError(err)
	}
	s, err := b.stores.GetStore(workspaceID)
	if stderrors.Is(err, manager.ErrStoreNotFound) {
		s, err = b.stores.CreateStore(workspaceID)
	}
	if err != nil {
		return nil, mapError(err)
	}
	return s, nil
}

// mapError tags domain errors with the sentinel the transport maps to a
// status code.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var resErr *table.ResolutionError
	switch {
	case stderrors.As(err, &resErr):
		return err
	case stderrors.Is(err, errors.ErrNotFound),
		stderrors.Is(err, errors.ErrInvalidInput),
		stderrors.Is(err, errors.ErrReadOnly),
		stderrors.Is(err, errors.ErrInternal):
		return err
	case stderrors.Is(err, graph.ErrNodeNotFound),
		stderrors.Is(err, graph.ErrPredicateNotFound),
		stderrors.Is(err, workspace.ErrUserNotFound),
		stderrors.Is(err, workspace.ErrWorkspaceNotFound),
		stderrors.Is(err, workspace.ErrTableNotFound),
		stderrors.Is(err, manager.ErrStoreNotFound):
		return errors.Wrap(errors.ErrNotFound, err)
	case stderrors.Is(err, graph.ErrInvalidTriple),
		stderrors.Is(err, graph.ErrInvalidLabel),
		stderrors.Is(err, workspace.ErrInvalidName):
		return errors.Wrap(errors.ErrInvalidInput, err)
	case stderrors.Is(err, graph.ErrReadOnly):
		return errors.Wrap(errors.ErrReadOnly, err)
	}
	return errors.Wrap(errors.ErrInternal, err)
}
