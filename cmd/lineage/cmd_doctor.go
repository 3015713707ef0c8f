package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/persistorai/lineage/client"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration and connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor()
		},
	}
}

type checkResult struct {
	Name   string
	Passed bool
	Detail string
	Hint   string
}

func runDoctor() error {
	var results []checkResult

	cfgPath, _, cfgErr := loadConfigFile()
	if cfgErr != nil {
		results = append(results, checkResult{
			Name: "Config file", Passed: true,
			Detail: "none, using flags and environment",
		})
	} else {
		results = append(results, checkResult{Name: "Config file", Passed: true, Detail: cfgPath})
	}

	results = append(results, checkResult{Name: "Server URL", Passed: true, Detail: flagURL})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	health, err := apiClient.Health(ctx)
	if err != nil {
		results = append(results, checkResult{
			Name: "Server reachable", Detail: flagURL,
			Hint: fmt.Sprintf("Is lineage-server running? Error: %v", err),
		})
	} else {
		results = append(results, checkResult{
			Name: "Server reachable", Passed: true,
			Detail: fmt.Sprintf("%s (%s)", health.Version, health.Dialect),
		})

		if n, err := apiClient.Edges.Count(ctx); err != nil {
			hint := fmt.Sprintf("Error: %v", err)
			if statusUnauthorized(err) {
				hint = "Check --api-key, LINEAGE_API_KEY or the active profile"
			}
			results = append(results, checkResult{Name: "Authentication", Hint: hint})
		} else {
			results = append(results, checkResult{
				Name: "Authentication", Passed: true, Detail: fmt.Sprintf("%d edges", n),
			})
		}
	}

	allPassed := true
	for _, r := range results {
		mark := "ok  "
		if !r.Passed {
			mark = "FAIL"
			allPassed = false
		}
		if r.Detail != "" {
			fmt.Printf("[%s] %s: %s\n", mark, r.Name, r.Detail)
		} else {
			fmt.Printf("[%s] %s\n", mark, r.Name)
		}
		if !r.Passed && r.Hint != "" {
			fmt.Printf("       %s\n", r.Hint)
		}
	}

	if !allPassed {
		return fmt.Errorf("doctor found issues")
	}
	return nil
}

func statusUnauthorized(err error) bool {
	apiErr, ok := err.(*client.APIError)
	return ok && (apiErr.StatusCode == 401 || apiErr.StatusCode == 403)
}
