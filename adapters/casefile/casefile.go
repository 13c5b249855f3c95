// Package casefile loads declarative network case files. A case file is
// HCL: period, location, arc, increment, set, parameter, and config
// blocks that populate the set and parameter dictionaries the model
// builder consumes. The loader only shapes the data; semantic
// validation happens during assembly.
package casefile

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"pwnet/core/model"
	"pwnet/internal/errors"
)

// Extension is the recognized case-file suffix.
const Extension = ".pwnet.hcl"

// Case is a parsed case file: the two model dictionaries plus the
// build configuration.
type Case struct {
	Sets   map[string][]string
	Params map[string]map[model.Key]float64
	Config model.Config
}

// Registry converts the parsed dictionaries into a model registry.
func (c *Case) Registry() *model.Registry {
	return model.NewRegistry(c.Sets, c.Params)
}

// roleSets maps location roles to their set names.
var roleSets = map[string]string{
	"production_pad":  model.SetProductionPads,
	"completions_pad": model.SetCompletionsPads,
	"external_source": model.SetExternalSources,
	"disposal_site":   model.SetDisposalSites,
	"storage_site":    model.SetStorageSites,
	"treatment_site":  model.SetTreatmentSites,
	"reuse_option":    model.SetReuseOptions,
	"node":            model.SetNetworkNodes,
}

// arcSets maps arc kinds to their pair-set names.
var arcSets = map[string]string{
	"piping":   model.SetPipingArcs,
	"trucking": model.SetTruckingArcs,
	"sourcing": model.SetSourcingArcs,
}

// incrementSets maps expansion-increment kinds to their set names.
var incrementSets = map[string]string{
	"diameter":  model.SetPipelineDiameters,
	"disposal":  model.SetDisposalIncrements,
	"storage":   model.SetStorageIncrements,
	"treatment": model.SetTreatmentIncrements,
}

var caseSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "period", LabelNames: []string{"id"}},
		{Type: "location", LabelNames: []string{"id"}},
		{Type: "arc", LabelNames: []string{"kind", "from", "to"}},
		{Type: "increment", LabelNames: []string{"kind", "id"}},
		{Type: "set", LabelNames: []string{"name"}},
		{Type: "parameter", LabelNames: []string{"name"}},
		{Type: "config"},
	},
}

// Load parses a case file from disk.
func Load(path string) (*Case, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.TypeConfigData, err, "reading case file %s", path)
	}
	return Parse(src, path)
}

// Parse parses case-file source. Every block is processed so one pass
// reports all problems at once.
func Parse(src []byte, filename string) (*Case, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errors.Wrap(errors.TypeConfigData, "parsing case file", diags)
	}

	c := &Case{
		Sets:   make(map[string][]string),
		Params: make(map[string]map[model.Key]float64),
		Config: model.DefaultConfig(),
	}
	var errs errors.Collector

	content, _, _ := file.Body.PartialContent(caseSchema)
	for _, block := range content.Blocks {
		switch block.Type {
		case "period":
			c.addSet(model.SetTimePeriods, block.Labels[0])
		case "location":
			parseLocation(c, block, &errs)
		case "arc":
			parseArc(c, block, &errs)
		case "increment":
			parseIncrement(c, block, &errs)
		case "set":
			parseSet(c, block, &errs)
		case "parameter":
			parseParameter(c, block, &errs)
		case "config":
			parseConfig(c, block, &errs)
		}
	}

	if err := errs.Err(errors.TypeConfigData, fmt.Sprintf("case file %s", filename)); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Case) addSet(name, elem string) {
	for _, e := range c.Sets[name] {
		if e == elem {
			return
		}
	}
	c.Sets[name] = append(c.Sets[name], elem)
}

func parseLocation(c *Case, block *hcl.Block, errs *errors.Collector) {
	id := block.Labels[0]
	attrs := attributes(block.Body)

	roles, ok := attrs["roles"]
	if !ok {
		errs.Addf("location %s: missing roles attribute", id)
		return
	}
	list, err := stringList(roles)
	if err != nil {
		errs.Addf("location %s: roles: %v", id, err)
		return
	}
	for _, role := range list {
		set, ok := roleSets[role]
		if !ok {
			errs.Addf("location %s: unknown role %q", id, role)
			continue
		}
		c.addSet(set, id)
	}
}

func parseArc(c *Case, block *hcl.Block, errs *errors.Collector) {
	kind, from, to := block.Labels[0], block.Labels[1], block.Labels[2]
	set, ok := arcSets[kind]
	if !ok {
		errs.Addf("arc %s %s: unknown kind %q", from, to, kind)
		return
	}
	c.addSet(set, string(model.K(from, to)))
}

func parseIncrement(c *Case, block *hcl.Block, errs *errors.Collector) {
	kind, id := block.Labels[0], block.Labels[1]
	set, ok := incrementSets[kind]
	if !ok {
		errs.Addf("increment %s: unknown kind %q", id, kind)
		return
	}
	c.addSet(set, id)
}

// parseSet handles sets with no dedicated block form, such as quality
// components and treatment technologies.
func parseSet(c *Case, block *hcl.Block, errs *errors.Collector) {
	name := block.Labels[0]
	attrs := attributes(block.Body)

	members, ok := attrs["members"]
	if !ok {
		errs.Addf("set %s: missing members attribute", name)
		return
	}
	list, err := stringList(members)
	if err != nil {
		errs.Addf("set %s: members: %v", name, err)
		return
	}
	for _, m := range list {
		c.addSet(name, m)
	}
}

func parseParameter(c *Case, block *hcl.Block, errs *errors.Collector) {
	name := block.Labels[0]
	attrs := attributes(block.Body)
	table := c.Params[name]
	if table == nil {
		table = make(map[model.Key]float64)
		c.Params[name] = table
	}

	// A scalar parameter uses the empty key.
	if attr, ok := attrs["value"]; ok {
		v, err := number(attr)
		if err != nil {
			errs.Addf("parameter %s: value: %v", name, err)
		} else {
			table[model.K()] = v
		}
	}

	if attr, ok := attrs["values"]; ok {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			errs.Addf("parameter %s: values: %v", name, diags)
			return
		}
		if !val.CanIterateElements() {
			errs.Addf("parameter %s: values must be a map of index tuples to numbers", name)
			return
		}
		for k, v := range val.AsValueMap() {
			f, err := ctyNumber(v)
			if err != nil {
				errs.Addf("parameter %s[%s]: %v", name, k, err)
				continue
			}
			table[canonicalKey(k)] = f
		}
	}
}

// canonicalKey normalizes a comma-joined index tuple, trimming the
// whitespace case-file authors put after commas.
func canonicalKey(raw string) model.Key {
	parts := strings.Split(raw, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return model.K(parts...)
}

func parseConfig(c *Case, block *hcl.Block, errs *errors.Collector) {
	attrs := attributes(block.Body)
	for name, attr := range attrs {
		if err := applyConfig(&c.Config, name, attr); err != nil {
			errs.Addf("config: %s: %v", name, err)
		}
	}
}

func applyConfig(cfg *model.Config, name string, attr *hcl.Attribute) error {
	switch name {
	case "objective":
		return setEnum(attr, (*string)(&cfg.Objective),
			string(model.ObjectiveCost), string(model.ObjectiveReuse),
			string(model.ObjectiveCostSurrogate), string(model.ObjectiveSubsurfaceRisk),
			string(model.ObjectiveEnvironmental))
	case "pipeline_cost":
		return setEnum(attr, (*string)(&cfg.PipelineCost),
			string(model.PipelineCostDistanceBased), string(model.PipelineCostCapacityBased))
	case "pipeline_capacity":
		return setEnum(attr, (*string)(&cfg.PipelineCapacity),
			string(model.PipelineCapacityInput), string(model.PipelineCapacityCalculated))
	case "water_quality":
		return setEnum(attr, (*string)(&cfg.WaterQuality),
			string(model.QualityOff), string(model.QualityPostProcess), string(model.QualityDiscrete))
	case "quality_buckets":
		v, err := number(attr)
		if err != nil {
			return err
		}
		cfg.QualityBuckets = int(v)
		return nil
	case "hydraulics":
		return setEnum(attr, (*string)(&cfg.Hydraulics),
			string(model.HydraulicsOff), string(model.HydraulicsPostProcess),
			string(model.HydraulicsCoOptimize), string(model.HydraulicsCoOptimizeLinearized))
	case "removal_efficiency":
		return setEnum(attr, (*string)(&cfg.RemovalEfficiency),
			string(model.RemovalConcentrationBased), string(model.RemovalLoadBased))
	case "subsurface_risk":
		return setEnum(attr, (*string)(&cfg.SubsurfaceRisk),
			string(model.RiskOff), string(model.RiskCalculated))
	case "tanks":
		return setEnum(attr, (*string)(&cfg.Tanks),
			string(model.TanksIndividual), string(model.TanksEqualized))
	case "desalination_surrogate":
		return setEnum(attr, (*string)(&cfg.DesalinationSurrogate),
			string(model.SurrogateOff), string(model.SurrogateMVC), string(model.SurrogateMD))
	case "node_capacity":
		return setBool(attr, &cfg.NodeCapacity)
	case "infrastructure_timing":
		return setBool(attr, &cfg.InfrastructureTiming)
	default:
		return fmt.Errorf("unknown configuration attribute")
	}
}

func setEnum(attr *hcl.Attribute, dst *string, allowed ...string) error {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return diags
	}
	if val.Type() != cty.String {
		return fmt.Errorf("expected a string")
	}
	s := val.AsString()
	for _, a := range allowed {
		if s == a {
			*dst = s
			return nil
		}
	}
	return fmt.Errorf("%q is not one of %s", s, strings.Join(allowed, ", "))
}

func setBool(attr *hcl.Attribute, dst *bool) error {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return diags
	}
	if val.Type() != cty.Bool {
		return fmt.Errorf("expected a bool")
	}
	*dst = val.True()
	return nil
}

func number(attr *hcl.Attribute) (float64, error) {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return 0, diags
	}
	return ctyNumber(val)
}

func ctyNumber(val cty.Value) (float64, error) {
	if !val.IsKnown() || val.IsNull() || val.Type() != cty.Number {
		return 0, fmt.Errorf("expected a number")
	}
	f, _ := val.AsBigFloat().Float64()
	return f, nil
}

func stringList(attr *hcl.Attribute) ([]string, error) {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if !val.CanIterateElements() {
		return nil, fmt.Errorf("expected a list of strings")
	}
	var out []string
	for it := val.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		if elem.Type() != cty.String {
			return nil, fmt.Errorf("expected a list of strings")
		}
		out = append(out, elem.AsString())
	}
	return out, nil
}

// attributes flattens a body into its attribute map, tolerating blocks
// the schema has already consumed.
func attributes(body hcl.Body) map[string]*hcl.Attribute {
	attrs, _ := body.JustAttributes()
	if attrs == nil {
		return map[string]*hcl.Attribute{}
	}
	return attrs
}
