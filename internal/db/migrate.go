package db

import (
	"context"

	"bloc-editor/internal/bloc"
	"bloc-editor/internal/fractional"
	"bloc-editor/internal/tree"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/xerrors"
)

// WelcomePageID is the page seeded in development.
const WelcomePageID = "welcome"

// Migrate runs database migrations
func Migrate(log zerolog.Logger) error {
	if err := AppDb.AutoMigrate(&bloc.Bloc{}); err != nil {
		return xerrors.Errorf("migrate: %w", err)
	}
	log.Info().Msg("database schema migrated successfully")
	return nil
}

// SeedData seeds the welcome page (for development only)
func SeedData(ctx context.Context, log zerolog.Logger) error {
	return seed(ctx, bloc.NewRepository(AppDb), log)
}

func seed(ctx context.Context, store bloc.Store, log zerolog.Logger) error {
	existing, err := store.GetBlocsByPageID(ctx, WelcomePageID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Info().Int("blocs", len(existing)).Msg("welcome page already seeded")
		return nil
	}

	nodes := welcomeNodes()
	positions, err := fractional.NKeysBetween("", "", len(nodes))
	if err != nil {
		return err
	}
	for i, n := range nodes {
		id := uuid.NewString()
		n.SetID(id)
		n.SetPosition(positions[i])
		content, err := tree.Encode(n)
		if err != nil {
			return err
		}
		b := &bloc.Bloc{ID: id, Position: positions[i], Content: content, PageID: WelcomePageID, BlocType: n.Type}
		if _, err := store.CreateBloc(ctx, b); err != nil {
			return xerrors.Errorf("seed bloc %d: %w", i, err)
		}
	}
	log.Info().Int("blocs", len(nodes)).Msg("seeded welcome page")
	return nil
}

func welcomeNodes() []tree.SerializedNode {
	text := func(s string) tree.SerializedNode {
		return tree.SerializedNode{Type: tree.TypeText, Version: 1, Text: s}
	}
	return []tree.SerializedNode{
		{Type: tree.TypeHeading, Version: 1, Tag: "h1", Children: []tree.SerializedNode{text("Welcome")}},
		{Type: tree.TypeParagraph, Version: 1, Children: []tree.SerializedNode{text("Every top-level block of this page is stored as a bloc.")}},
		{Type: tree.TypeQuote, Version: 1, Children: []tree.SerializedNode{
			{Type: tree.TypeParagraph, Version: 1, Children: []tree.SerializedNode{text("Edits are saved while you type.")}},
		}},
	}
}
