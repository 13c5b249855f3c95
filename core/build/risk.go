package build

import (
	"pwnet/core/model"
)

// riskBlock emits the subsurface-risk covering constraints: disposal
// sites are grouped into pressure-interference clusters, and each
// cluster must curtail a minimum number of wells. Curtailment binaries
// feed the disposal capacity definition; the risk objective itself is
// defined with the other objective kinds.
func (b *builder) riskBlock() error {
	if !b.riskEnabled() {
		return nil
	}
	reg, m := b.reg, b.m

	var keys []model.Key
	for _, cl := range reg.Set(model.SetInjectionClusters) {
		keys = append(keys, model.K(cl))
	}
	return b.emit("ClusterCurtailment", keys, func(idx model.Key) (row, bool) {
		cl := idx.Parts()[0]
		count := reg.ValueOr(model.ParamClusterCurtailment, 0, cl)
		e := model.NewExpr()
		for _, k := range reg.Set(model.SetDisposalSites) {
			if reg.ValueOr(model.ParamClusterMembership, 0, cl, k) != 0 {
				e = e.AddTerm(m.Var(model.VarCurtailment, k), 1)
			}
		}
		if e.Len() == 0 {
			return row{}, false
		}
		return ge(e, count), true
	})
}
