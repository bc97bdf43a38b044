package acceptance

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"ediaudit/internal/config"
	"ediaudit/internal/constants"
	"ediaudit/internal/logger"
	"ediaudit/pkg/cel"
	"ediaudit/pkg/metrics"
	"ediaudit/pkg/models"
)

type errorHandlingStatus int

const (
	errorHandlingDeny errorHandlingStatus = iota
	errorHandlingSkip
)

// Service evaluates the enabled acceptance rules against a decoded invoice.
// All rules must pass; with no rules configured every invoice is accepted.
type Service struct {
	repo             Repository
	rules            []Rule
	rulesMu          sync.RWMutex
	acceptanceConfig config.AcceptanceConfig
	evaluator        *cel.Evaluator
	logger           logger.Logger
}

func NewService(repo Repository, cfg config.AcceptanceConfig, log logger.Logger) (*Service, error) {
	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL evaluator: %w", err)
	}

	return &Service{
		repo:             repo,
		acceptanceConfig: cfg,
		rules:            make([]Rule, 0),
		evaluator:        evaluator,
		logger:           log,
	}, nil
}

// Evaluate returns whether the invoice is accepted, plus the IDs of the
// rules that passed before the decision.
func (s *Service) Evaluate(ctx context.Context, msg models.InboundEnvelope, invoice map[string]interface{}, segmentCount int) (bool, []string, error) {
	rules := s.getActiveRules()
	appliedRules := make([]string, 0, len(rules))

	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			return false, nil, err
		}

		result, err := s.evaluator.EvaluateAcceptance(ctx, rule.Expression, msg, invoice, segmentCount)
		if err != nil {
			metrics.IncAcceptanceRuleEvaluation(rule.ID, rule.Name, "error")
			status := s.handleEvaluationError(ctx, rule, err)
			if status == errorHandlingDeny {
				return false, appliedRules, nil
			}
			continue
		}

		if !result {
			metrics.IncAcceptanceRuleEvaluation(rule.ID, rule.Name, "rejected")
			s.logger.DebugwCtx(ctx, "Rule rejected invoice",
				"rule_id", rule.ID,
				"rule_name", rule.Name,
			)
			return false, appliedRules, nil
		}

		metrics.IncAcceptanceRuleEvaluation(rule.ID, rule.Name, "passed")
		appliedRules = append(appliedRules, rule.ID)
	}

	return true, appliedRules, nil
}

// ValidateExpression checks rule syntax before it is persisted.
func (s *Service) ValidateExpression(expression string) error {
	return s.evaluator.ValidateAcceptanceExpression(expression)
}

func (s *Service) getActiveRules() []Rule {
	s.rulesMu.RLock()
	defer s.rulesMu.RUnlock()

	rules := make([]Rule, len(s.rules))
	copy(rules, s.rules)
	return rules
}

func (s *Service) handleEvaluationError(ctx context.Context, rule Rule, err error) errorHandlingStatus {
	s.logger.ErrorwCtx(ctx, "Rule evaluation error",
		"rule_id", rule.ID,
		"rule_name", rule.Name,
		"error", err,
	)

	switch s.acceptanceConfig.Fallback.OnError {
	case constants.FallbackAllow:
		metrics.FallbackUsageTotal.WithLabelValues("acceptance", "allow_on_error", "evaluation_error").Inc()
		s.logger.WarnwCtx(ctx, "Evaluation error, skipping rule (fallback: allow)",
			"rule_id", rule.ID,
			"rule_name", rule.Name,
		)
		return errorHandlingSkip
	default:
		// Deny is the safe default for an audit gate.
		metrics.FallbackUsageTotal.WithLabelValues("acceptance", "deny_on_error", "evaluation_error").Inc()
		s.logger.WarnwCtx(ctx, "Evaluation error, rejecting invoice (fallback: deny)",
			"rule_id", rule.ID,
			"rule_name", rule.Name,
		)
		return errorHandlingDeny
	}
}

func (s *Service) ReloadRules(ctx context.Context, skipJitter ...bool) error {
	shouldSkipJitter := len(skipJitter) > 0 && skipJitter[0]

	if err := s.applyJitter(ctx, shouldSkipJitter); err != nil {
		return err
	}

	rules, err := s.repo.GetActiveRules(ctx)
	if err != nil {
		return err
	}

	s.updateRules(ctx, rules)
	return nil
}

func (s *Service) applyJitter(ctx context.Context, skipJitter bool) error {
	if skipJitter || s.acceptanceConfig.Reload.JitterMaxMilliseconds == 0 {
		return nil
	}

	jitter := time.Duration(rand.Intn(s.acceptanceConfig.Reload.JitterMaxMilliseconds)) * time.Millisecond
	s.logger.DebugwCtx(ctx, "Reload scheduled with jitter",
		"jitter_ms", jitter.Milliseconds(),
	)

	select {
	case <-time.After(jitter):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) updateRules(ctx context.Context, rules []Rule) {
	s.rulesMu.Lock()
	s.rules = rules
	s.rulesMu.Unlock()

	metrics.SetAcceptanceActiveRules(len(rules))
	s.logger.InfowCtx(ctx, "Successfully reloaded rules",
		"rules_count", len(rules),
	)
}

func (s *Service) StartReloader(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(s.acceptanceConfig.Reload.IntervalSeconds) * time.Second)
	defer ticker.Stop()

	if err := s.ReloadRules(ctx); err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to reload rules",
			"error", err,
		)
	}

	for {
		select {
		case <-ticker.C:
			if err := s.ReloadRules(ctx); err != nil {
				s.logger.ErrorwCtx(ctx, "Failed to reload rules",
					"error", err,
				)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
