// Package expression resolves #{...} expressions in configuration values against the running execution.
package expression

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/logger"
)

// DefaultExpressionResolver resolves jobParameters['key'], jobExecution.<property> and
// stepExecution.<property> expressions.
type DefaultExpressionResolver struct{}

var _ port.ExpressionResolver = (*DefaultExpressionResolver)(nil)

// NewDefaultExpressionResolver creates a new instance of DefaultExpressionResolver.
func NewDefaultExpressionResolver() *DefaultExpressionResolver {
	return &DefaultExpressionResolver{}
}

// expressionPattern captures the form #{...}
var expressionPattern = regexp.MustCompile(`\#\{(.+?)\}`)

// Resolve resolves the given expression string and returns the resulting string.
// An expression that cannot be resolved is left unchanged and logged.
func (r *DefaultExpressionResolver) Resolve(ctx context.Context, expression string, jobExecution *model.JobExecution, stepExecution *model.StepExecution) (string, error) {
	if !expressionPattern.MatchString(expression) {
		return expression, nil
	}
	if jobExecution == nil && stepExecution != nil {
		jobExecution = stepExecution.JobExecution
	}

	resolved := expressionPattern.ReplaceAllStringFunc(expression, func(match string) string {
		inner := strings.TrimSpace(match[2 : len(match)-1])

		if jobExecution == nil {
			logger.Warnf("ExpressionResolver: Skipping resolution of dynamic expression '%s' because JobExecution is nil.", inner)
			return match
		}
		if val, err := resolveJobParameters(inner, jobExecution); err == nil {
			return val
		}
		if val, err := resolveJobExecution(inner, jobExecution); err == nil {
			return val
		}
		if stepExecution != nil {
			if val, err := resolveStepExecution(inner, stepExecution); err == nil {
				return val
			}
		}

		logger.Warnf("ExpressionResolver: Unknown expression or key not found: %s", inner)
		return match
	})

	return resolved, nil
}

// jobParamsPattern matches jobParameters['key']
var jobParamsPattern = regexp.MustCompile(`^jobParameters\['(.+?)'\]$`)

func resolveJobParameters(expr string, jobExecution *model.JobExecution) (string, error) {
	matches := jobParamsPattern.FindStringSubmatch(expr)
	if len(matches) != 2 {
		return "", fmt.Errorf("pattern mismatch")
	}
	key := matches[1]

	if val, ok := jobExecution.Parameters.Params[key]; ok {
		return fmt.Sprintf("%v", val), nil
	}
	return "", fmt.Errorf("key '%s' not found in JobParameters", key)
}

var jobExecPattern = regexp.MustCompile(`^jobExecution\.(\w+)$`)

func resolveJobExecution(expr string, jobExecution *model.JobExecution) (string, error) {
	matches := jobExecPattern.FindStringSubmatch(expr)
	if len(matches) != 2 {
		return "", fmt.Errorf("pattern mismatch")
	}
	switch matches[1] {
	case "id":
		return jobExecution.ID, nil
	case "jobName":
		return jobExecution.JobName, nil
	case "startTime":
		return jobExecution.StartTime.UTC().Format("20060102T150405Z"), nil
	}
	return "", fmt.Errorf("unsupported JobExecution property: %s", matches[1])
}

var stepExecPattern = regexp.MustCompile(`^stepExecution\.(\w+)$`)

func resolveStepExecution(expr string, stepExecution *model.StepExecution) (string, error) {
	matches := stepExecPattern.FindStringSubmatch(expr)
	if len(matches) != 2 {
		return "", fmt.Errorf("pattern mismatch")
	}
	switch matches[1] {
	case "id":
		return stepExecution.ID, nil
	case "stepName":
		return stepExecution.StepName, nil
	}
	return "", fmt.Errorf("unsupported StepExecution property: %s", matches[1])
}
