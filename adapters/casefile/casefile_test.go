package casefile

import (
	"strings"
	"testing"

	"pwnet/core/model"
)

const sampleCase = `
config {
  objective             = "cost"
  water_quality         = "post_process"
  quality_buckets       = 4
  infrastructure_timing = true
}

period "T01" {}
period "T02" {}

location "PP01" {
  roles = ["production_pad"]
}

location "N01" {
  roles = ["node"]
}

location "K01" {
  roles = ["disposal_site"]
}

location "S01" {
  roles = ["storage_site", "treatment_site"]
}

arc "piping" "PP01" "N01" {}
arc "piping" "N01" "K01" {}
arc "trucking" "PP01" "K01" {}

increment "disposal" "I0" {}
increment "diameter" "D8" {}

set "QualityComponents" {
  members = ["TDS"]
}

parameter "ProductionRates" {
  values = {
    "PP01,T01" = 1200
    "PP01,T02" = 800
  }
}

parameter "InitialDisposalCapacity" {
  values = {
    "K01" = 500
  }
}

parameter "AnnualizationRate" {
  value = 0.13
}
`

func parseSample(t *testing.T) *Case {
	t.Helper()
	c, err := Parse([]byte(sampleCase), "sample"+Extension)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return c
}

func TestParsePopulatesSets(t *testing.T) {
	c := parseSample(t)

	periods := c.Sets[model.SetTimePeriods]
	if len(periods) != 2 || periods[0] != "T01" || periods[1] != "T02" {
		t.Fatalf("periods = %v, want [T01 T02] in declaration order", periods)
	}
	if got := c.Sets[model.SetProductionPads]; len(got) != 1 || got[0] != "PP01" {
		t.Fatalf("production pads = %v, want [PP01]", got)
	}

	// A location can carry several roles.
	if got := c.Sets[model.SetStorageSites]; len(got) != 1 || got[0] != "S01" {
		t.Fatalf("storage sites = %v, want [S01]", got)
	}
	if got := c.Sets[model.SetTreatmentSites]; len(got) != 1 || got[0] != "S01" {
		t.Fatalf("treatment sites = %v, want [S01]", got)
	}

	arcs := c.Sets[model.SetPipingArcs]
	if len(arcs) != 2 || arcs[0] != "PP01,N01" {
		t.Fatalf("piping arcs = %v", arcs)
	}
	if got := c.Sets[model.SetDisposalIncrements]; len(got) != 1 || got[0] != "I0" {
		t.Fatalf("disposal increments = %v, want [I0]", got)
	}
	if got := c.Sets[model.SetQualityComponents]; len(got) != 1 || got[0] != "TDS" {
		t.Fatalf("quality components = %v, want [TDS]", got)
	}
}

func TestParsePopulatesParameters(t *testing.T) {
	c := parseSample(t)

	if v := c.Params["ProductionRates"][model.K("PP01", "T01")]; v != 1200 {
		t.Fatalf("ProductionRates[PP01,T01] = %v, want 1200", v)
	}
	if v := c.Params["AnnualizationRate"][model.K()]; v != 0.13 {
		t.Fatalf("AnnualizationRate = %v, want 0.13", v)
	}
}

func TestParseAppliesConfig(t *testing.T) {
	c := parseSample(t)

	if c.Config.WaterQuality != model.QualityPostProcess {
		t.Fatalf("water quality = %v, want post_process", c.Config.WaterQuality)
	}
	if c.Config.QualityBuckets != 4 {
		t.Fatalf("quality buckets = %d, want 4", c.Config.QualityBuckets)
	}
	if !c.Config.InfrastructureTiming {
		t.Fatal("infrastructure timing not enabled")
	}
	// Unset attributes keep their defaults.
	if c.Config.Hydraulics != model.HydraulicsOff {
		t.Fatalf("hydraulics = %v, want off", c.Config.Hydraulics)
	}
}

func TestRegistryRoundTrip(t *testing.T) {
	reg := parseSample(t).Registry()

	if got := reg.Periods(); len(got) != 2 || got[0] != "T01" {
		t.Fatalf("registry periods = %v", got)
	}
	arcs := reg.Arcs(model.SetPipingArcs)
	if len(arcs) != 2 || arcs[0].From != "PP01" || arcs[0].To != "N01" {
		t.Fatalf("registry piping arcs = %v", arcs)
	}
	if v := reg.ValueOr("InitialDisposalCapacity", 0, "K01"); v != 500 {
		t.Fatalf("InitialDisposalCapacity[K01] = %v, want 500", v)
	}
}

func TestParseAggregatesErrors(t *testing.T) {
	bad := `
location "X01" {
  roles = ["volcano"]
}

arc "teleport" "X01" "X02" {}

config {
  objective = "profit"
}
`
	_, err := Parse([]byte(bad), "bad"+Extension)
	if err == nil {
		t.Fatal("expected an aggregated error")
	}
	for _, frag := range []string{"volcano", "teleport", "profit"} {
		if !strings.Contains(err.Error(), frag) {
			t.Fatalf("error %q does not mention %q", err, frag)
		}
	}
}
