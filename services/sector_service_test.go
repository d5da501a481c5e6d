package services

import (
	"testing"

	"portfoliobackend/types"
)

func TestRollupSectors_SingleSector(t *testing.T) {
	holdings := []types.AggregatedHolding{
		{Symbol: "HDFCBANK", Investment: 100, PresentValue: 120, Sector: "Banking"},
		{Symbol: "532174", Investment: 200, PresentValue: 180, Sector: "Banking"},
	}

	summaries := RollupSectors(holdings)
	if len(summaries) != 1 {
		t.Fatalf("Expected 1 sector, got %d", len(summaries))
	}
	expected := types.SectorSummary{Sector: "Banking", Holdings: 2, TotalInvestment: 300, TotalPresentValue: 300}
	if summaries[0] != expected {
		t.Errorf("Expected %+v, got %+v", expected, summaries[0])
	}
}

func TestRollupSectors_OrderAndDefaultBucket(t *testing.T) {
	holdings := []types.AggregatedHolding{
		{Symbol: "INFY", Investment: 100, PresentValue: 150, Sector: "Tech Sector"},
		{Symbol: "GRAVITA", Investment: 50, PresentValue: 40},
		{Symbol: "HDFCBANK", Investment: 100, PresentValue: 90, Sector: "Financial Sector"},
		{Symbol: "AFFLE", Investment: 100, PresentValue: 50, Sector: "Tech Sector"},
		{Symbol: "CLEAN", Investment: 0, PresentValue: 10, Sector: "  "},
	}

	summaries := RollupSectors(holdings)
	sectors := make([]string, 0, len(summaries))
	for _, summary := range summaries {
		sectors = append(sectors, summary.Sector)
	}
	expected := []string{"Tech Sector", "Others", "Financial Sector"}
	if len(sectors) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, sectors)
	}
	for i := range expected {
		if sectors[i] != expected[i] {
			t.Errorf("Expected %v, got %v", expected, sectors)
		}
	}

	tech := summaries[0]
	if tech.TotalGainLoss != 0 || tech.GainLossPercent != 0 || tech.Holdings != 2 {
		t.Errorf("Unexpected tech summary %+v", tech)
	}
	others := summaries[1]
	if others.TotalInvestment != 50 || others.TotalGainLoss != 0 || others.Holdings != 2 {
		t.Errorf("Unexpected others summary %+v", others)
	}
}

func TestRollupSectors_ZeroInvestment(t *testing.T) {
	summaries := RollupSectors([]types.AggregatedHolding{{Symbol: "CLEAN", PresentValue: 10, Sector: "Chemicals"}})
	if summaries[0].GainLossPercent != 0 {
		t.Errorf("Expected 0, got %v", summaries[0].GainLossPercent)
	}
	if summaries[0].TotalGainLoss != 10 {
		t.Errorf("Expected 10, got %v", summaries[0].TotalGainLoss)
	}
}

func TestRollupSectors_Empty(t *testing.T) {
	summaries := RollupSectors(nil)
	if summaries == nil || len(summaries) != 0 {
		t.Errorf("Expected an empty list, got %v", summaries)
	}
}

func TestRollupTotal(t *testing.T) {
	total := RollupTotal([]types.SectorSummary{
		{Sector: "Tech Sector", Holdings: 2, TotalInvestment: 200, TotalPresentValue: 250},
		{Sector: "Financial Sector", Holdings: 1, TotalInvestment: 200, TotalPresentValue: 150},
	})
	if total.Sector != "Total" || total.Holdings != 3 {
		t.Errorf("Unexpected total %+v", total)
	}
	if total.TotalInvestment != 400 || total.TotalPresentValue != 400 || total.TotalGainLoss != 0 {
		t.Errorf("Unexpected totals %+v", total)
	}
}
