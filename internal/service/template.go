package service

import (
	"context"
	"fmt"
	"time"

	"questtracker/internal/model"
	"questtracker/pkg/monitoring"

	"github.com/google/uuid"
)

type TemplateExpander struct {
	repo   TemplateRepository
	window int
	clock  Clock
}

func NewTemplateExpander(repo TemplateRepository, cfg LedgerConfig, clock Clock) *TemplateExpander {
	if clock == nil {
		clock = time.Now
	}
	return &TemplateExpander{
		repo:   repo,
		window: cfg.withDefaults().TemplateWindowDays,
		clock:  clock,
	}
}

// ExpandPinnedTemplates clones every pinned template lineage into today unless that
// lineage already has a quest scheduled for today. Safe to call repeatedly.
func (t *TemplateExpander) ExpandPinnedTemplates(ctx context.Context, userID int64, today time.Time) error {
	ctx, span := tracer.Start(ctx, "TemplateExpander.ExpandPinnedTemplates")
	defer span.End()

	pinned, err := t.repo.ListPinnedQuests(ctx, userID, today.AddDate(0, 0, -t.window), today)
	if err != nil {
		return fmt.Errorf("failed to load pinned quests: %w", err)
	}

	templates := latestPerTemplate(pinned)
	if len(templates) == 0 {
		return nil
	}

	existing, err := t.repo.ListQuestsByDay(ctx, userID, today)
	if err != nil {
		return fmt.Errorf("failed to load quests for %s: %w", model.FormatDay(today), err)
	}
	scheduled := make(map[uuid.UUID]struct{}, len(existing))
	for _, q := range existing {
		if q.TemplateKey != nil {
			scheduled[*q.TemplateKey] = struct{}{}
		}
	}

	now := t.clock().UTC()
	for _, tpl := range templates {
		if _, ok := scheduled[*tpl.TemplateKey]; ok {
			continue
		}

		clone := tpl.CloneFor(today)
		clone.CreatedAt = now
		inserted, err := t.repo.InsertQuestIfAbsent(ctx, clone)
		if err != nil {
			return err
		}
		if inserted {
			monitoring.TemplateClones.Inc()
		}
	}
	return nil
}

// latestPerTemplate keeps the most recently scheduled instance of each template lineage,
// preserving first-seen order. Quests without a template key are ignored.
func latestPerTemplate(quests []*model.Quest) []*model.Quest {
	index := make(map[uuid.UUID]int)
	var templates []*model.Quest
	for _, q := range quests {
		if q.TemplateKey == nil {
			continue
		}
		i, ok := index[*q.TemplateKey]
		if !ok {
			index[*q.TemplateKey] = len(templates)
			templates = append(templates, q)
			continue
		}
		cur := templates[i]
		if q.ScheduledDay.After(cur.ScheduledDay) ||
			(q.ScheduledDay.Equal(cur.ScheduledDay) && q.CreatedAt.After(cur.CreatedAt)) {
			templates[i] = q
		}
	}
	return templates
}
