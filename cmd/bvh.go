package cmd

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/scenelab/scenelab/bvh"
	"github.com/scenelab/scenelab/renderer"
	"github.com/urfave/cli"
)

// Build the acceleration structure for a scene, validate it and display
// its statistics.
func InspectBVH(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	opts := renderer.DefaultOptions()
	if ctx.IsSet("leaf-size") {
		opts.BVH.LeafSize = ctx.Int("leaf-size")
	}
	if ctx.IsSet("max-depth") {
		opts.BVH.MaxDepth = ctx.Int("max-depth")
	}
	if ctx.IsSet("strategy") {
		opts.BVH.Strategy = ctx.String("strategy")
	}
	if ctx.IsSet("bins") {
		opts.BVH.Bins = ctx.Int("bins")
	}

	sc, _, err := loadScene(ctx, opts)
	if err != nil {
		return err
	}

	snap := sc.Snapshot()
	if err = snap.Tree.Validate(bvh.RefsFrom(snap.Primitives)); err != nil {
		return err
	}

	displayBVHStats(snap.Tree, opts.BVH.Strategy)
	return nil
}

func displayBVHStats(tree *bvh.BVH, strategy string) {
	if strategy == "" {
		strategy = "sah"
	}

	var maxLeaf int
	var leafItems int
	tree.Walk(func(node *bvh.Node, _ int) bool {
		if node.IsLeaf() {
			leafItems += node.Count
			maxLeaf = max(maxLeaf, node.Count)
		}
		return true
	})

	avgLeaf := float32(0)
	if tree.Stats.Leaves > 0 {
		avgLeaf = float32(leafItems) / float32(tree.Stats.Leaves)
	}
	bounds := tree.Root.Bounds

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Property", "Value"})
	table.AppendBulk([][]string{
		{"Strategy", strategy},
		{"Primitives", fmt.Sprintf("%d", tree.Stats.Primitives)},
		{"Nodes", fmt.Sprintf("%d", tree.Stats.Nodes)},
		{"Leaves", fmt.Sprintf("%d", tree.Stats.Leaves)},
		{"Max depth", fmt.Sprintf("%d", tree.Stats.MaxDepth)},
		{"Avg leaf size", fmt.Sprintf("%.2f", avgLeaf)},
		{"Max leaf size", fmt.Sprintf("%d", maxLeaf)},
		{"Bounds", fmt.Sprintf("%v - %v", bounds.Min, bounds.Max)},
		{"Build time", tree.Stats.BuildTime.String()},
	})

	table.Render()
	logger.Noticef("bvh statistics\n%s", buf.String())
}
