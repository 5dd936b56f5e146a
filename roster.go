package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/weberitsol/school-erp-sub010/mapview"
)

// fetchRoster loads the vehicle roster from the REST API at base.
func fetchRoster(ctx context.Context, client *http.Client, base, token string) ([]mapview.Vehicle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(base, "/")+"/api/vehicles", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("roster: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("roster http status: %d", resp.StatusCode)
	}

	var rows []rosterVehicle
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("roster decode: %w", err)
	}
	vehicles := make([]mapview.Vehicle, 0, len(rows))
	for _, row := range rows {
		if row.ID == "" {
			continue
		}
		vehicles = append(vehicles, row.toView())
	}
	return vehicles, nil
}
