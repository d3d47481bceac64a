package generator

import (
	"sort"

	"github.com/samber/lo"

	genm "ec2sshconfig/generator/models"
)

// Arrange orders records for emission: a stable sort by label, then grouped
// by environment with the Bastion group first and the rest in lexical order.
// Incomplete records are dropped. The input slice is not modified.
func Arrange(records []genm.HostRecord) []genm.Group {
	sorted := lo.Filter(records, func(r genm.HostRecord, _ int) bool {
		return r.Complete()
	})
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Label < sorted[j].Label
	})

	byEnv := lo.GroupBy(sorted, func(r genm.HostRecord) string {
		return r.Environment
	})

	envs := lo.Filter(lo.Keys(byEnv), func(env string, _ int) bool {
		return env != BastionEnvironment
	})
	sort.Strings(envs)
	if len(byEnv[BastionEnvironment]) > 0 {
		envs = append([]string{BastionEnvironment}, envs...)
	}

	groups := make([]genm.Group, 0, len(envs))
	for _, env := range envs {
		groups = append(groups, genm.Group{
			Environment: env,
			Hosts:       byEnv[env],
		})
	}
	return groups
}

// Summarize counts hosts per group, in group order
func Summarize(groups []genm.Group) genm.Summary {
	summary := genm.Summary{
		ByEnvironment: make([]genm.EnvCount, 0, len(groups)),
	}
	for _, g := range groups {
		summary.Total += len(g.Hosts)
		summary.ByEnvironment = append(summary.ByEnvironment, genm.EnvCount{
			Environment: g.Environment,
			Count:       len(g.Hosts),
		})
	}
	return summary
}
