// Command analyze inspects Tile Link board presets offline.
//
//	analyze simulate [preset...]   play many seeded games with a greedy hint player
//	analyze show <preset>          print one dealt board
//	analyze validate               list every preset file and whether it loads
//
// All commands read presets from --config-dir (default "configs").
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/tilelink/game/config"
	"github.com/wricardo/mcp-training/tilelink/game/engine"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func configDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "config-dir",
		Value: "configs",
		Usage: "directory containing board presets",
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "inspect Tile Link board presets",
		Commands: []*cli.Command{
			{
				Name:      "simulate",
				Usage:     "play seeded games with a greedy player and report win rates",
				ArgsUsage: "[preset...]",
				Flags: []cli.Flag{
					configDirFlag(),
					&cli.IntFlag{Name: "games", Value: 100, Usage: "games per preset"},
					&cli.IntFlag{Name: "workers", Value: 4, Usage: "games played in parallel"},
					&cli.Int64Flag{Name: "seed", Value: 1, Usage: "seed of the first game; game i uses seed+i"},
					&cli.IntFlag{Name: "max-shuffles", Value: 3, Usage: "shuffles allowed per game before it counts as lost"},
				},
				Action: runSimulate,
			},
			{
				Name:      "show",
				Usage:     "deal one board and print it",
				ArgsUsage: "<preset>",
				Flags: []cli.Flag{
					configDirFlag(),
					&cli.Int64Flag{Name: "seed", Value: 1, Usage: "deal seed"},
				},
				Action: runShow,
			},
			{
				Name:   "validate",
				Usage:  "check that every preset file loads",
				Flags:  []cli.Flag{configDirFlag()},
				Action: runValidate,
			},
		},
	}
}

// simulateOptions controls one simulate run
type simulateOptions struct {
	Games       int
	Workers     int
	Seed        int64
	MaxShuffles int
}

// gameStats is the outcome of one greedy game
type gameStats struct {
	Victory  bool
	Score    int
	Matches  int
	Shuffles int
	Turns    int
}

// presetReport aggregates the games played on one preset
type presetReport struct {
	ID       string
	Rows     int
	Cols     int
	Games    int
	Wins     int
	Score    int
	Matches  int
	Shuffles int
	Turns    int
}

func (r *presetReport) add(s gameStats) {
	r.Games++
	if s.Victory {
		r.Wins++
	}
	r.Score += s.Score
	r.Matches += s.Matches
	r.Shuffles += s.Shuffles
	r.Turns += s.Turns
}

func runSimulate(ctx context.Context, cmd *cli.Command) error {
	opts := simulateOptions{
		Games:       int(cmd.Int("games")),
		Workers:     int(cmd.Int("workers")),
		Seed:        cmd.Int64("seed"),
		MaxShuffles: int(cmd.Int("max-shuffles")),
	}
	if opts.Games <= 0 {
		return fmt.Errorf("--games must be positive")
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	manager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return err
	}

	names := cmd.Args().Slice()
	if len(names) == 0 {
		infos, err := manager.ListConfigs()
		if err != nil {
			return err
		}
		for _, info := range infos {
			names = append(names, info.ConfigID)
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("no presets found in %s", cmd.String("config-dir"))
	}

	var reports []*presetReport
	for _, name := range names {
		cfg, err := manager.LoadConfig(name)
		if err != nil {
			return fmt.Errorf("preset %s: %w", name, err)
		}
		report, err := simulate(ctx, name, cfg, opts)
		if err != nil {
			return fmt.Errorf("preset %s: %w", name, err)
		}
		reports = append(reports, report)
	}

	renderReport(cmd.Root().Writer, reports)
	return nil
}

// simulate plays opts.Games independent games on cfg, opts.Workers at a time
func simulate(ctx context.Context, id string, cfg *engine.GameConfig, opts simulateOptions) (*presetReport, error) {
	results := make([]gameStats, opts.Games)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := range results {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			stats, err := playGame(cfg, opts.Seed+int64(i), opts.MaxShuffles)
			if err != nil {
				return fmt.Errorf("game %d: %w", i, err)
			}
			results[i] = stats
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &presetReport{ID: id, Rows: cfg.Rows, Cols: cfg.Cols}
	for _, s := range results {
		report.add(s)
	}
	return report, nil
}

// playGame always plays the first hinted pair and shuffles when stuck
func playGame(cfg *engine.GameConfig, seed int64, maxShuffles int) (gameStats, error) {
	var stats gameStats

	own := *cfg
	eng, err := engine.NewEngine(&own, rand.New(rand.NewSource(seed)))
	if err != nil {
		return stats, err
	}

	for !eng.IsVictory() {
		hint, err := eng.Hint()
		if errors.Is(err, engine.ErrNoAvailableMatch) {
			if stats.Shuffles >= maxShuffles {
				break
			}
			if _, err := eng.Shuffle(); err != nil {
				return stats, err
			}
			stats.Shuffles++
			continue
		}
		if err != nil {
			return stats, err
		}

		res, err := eng.Match(hint.From, hint.To)
		if err != nil {
			return stats, err
		}
		if !res.Success {
			return stats, fmt.Errorf("hinted pair %s %s rejected: %s", hint.From, hint.To, res.Reason)
		}
		stats.Matches++
		stats.Turns += res.Turns
	}

	stats.Victory = eng.IsVictory()
	stats.Score = eng.GetScore()
	return stats, nil
}

func renderReport(w io.Writer, reports []*presetReport) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Preset", "Board", "Games", "Win %", "Avg Score", "Avg Shuffles", "Avg Turns"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
	})

	games, wins := 0, 0
	for _, r := range reports {
		avgTurns := 0.0
		if r.Matches > 0 {
			avgTurns = float64(r.Turns) / float64(r.Matches)
		}
		table.Append([]string{
			r.ID,
			fmt.Sprintf("%dx%d", r.Rows, r.Cols),
			fmt.Sprintf("%d", r.Games),
			fmt.Sprintf("%.1f", percent(r.Wins, r.Games)),
			fmt.Sprintf("%.1f", float64(r.Score)/float64(r.Games)),
			fmt.Sprintf("%.2f", float64(r.Shuffles)/float64(r.Games)),
			fmt.Sprintf("%.2f", avgTurns),
		})
		games += r.Games
		wins += r.Wins
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Presets %d", len(reports)), "",
		fmt.Sprintf("%d", games),
		fmt.Sprintf("%.1f", percent(wins, games)),
		"", "", "",
	})
	table.Render()
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(n) / float64(total)
}

func runShow(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("usage: analyze show <preset>")
	}

	manager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return err
	}
	cfg, err := manager.LoadConfig(name)
	if err != nil {
		return err
	}

	own := *cfg
	eng, err := engine.NewEngine(&own, rand.New(rand.NewSource(cmd.Int64("seed"))))
	if err != nil {
		return err
	}
	state := eng.GetState()

	w := cmd.Root().Writer
	fmt.Fprintf(w, "%s (%dx%d, max %d turns)\n", cfg.Name, cfg.Rows, cfg.Cols, state.Rules.MaxTurns)
	fmt.Fprintln(w, renderBoard(state.Board))
	fmt.Fprintf(w, "Tiles: %d  Opening moves: %d\n", state.Board.Remaining(), countConnectablePairs(state.Board, state.Rules))
	if hint, err := eng.Hint(); err == nil {
		fmt.Fprintf(w, "Hint: %s %s (%d turns)\n", hint.From, hint.To, hint.Turns)
	} else {
		fmt.Fprintln(w, "Hint: none, the deal is stuck")
	}
	return nil
}

var symbolPalette = []string{"9", "10", "11", "12", "13", "14", "208", "129", "39", "196", "46", "226"}

// renderBoard draws the grid with row and column indices. Each symbol gets a
// palette color; open cells are dim dots.
func renderBoard(board *engine.Board) string {
	grid := board.Grid()

	var symbols []engine.Symbol
	seen := make(map[engine.Symbol]bool)
	width := 1
	for _, row := range grid {
		for _, t := range row {
			if t.Cleared || seen[t.Symbol] {
				continue
			}
			seen[t.Symbol] = true
			symbols = append(symbols, t.Symbol)
			if n := lipgloss.Width(string(t.Symbol)); n > width {
				width = n
			}
		}
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i] < symbols[j] })

	styles := make(map[engine.Symbol]lipgloss.Style, len(symbols))
	for i, s := range symbols {
		styles[s] = lipgloss.NewStyle().
			Foreground(lipgloss.Color(symbolPalette[i%len(symbolPalette)])).
			Bold(true)
	}
	cell := lipgloss.NewStyle().Width(width + 1)
	open := lipgloss.NewStyle().Faint(true)
	index := lipgloss.NewStyle().Faint(true).Width(3)

	var b strings.Builder
	b.WriteString(index.Render(""))
	for c := 0; c < board.Cols(); c++ {
		b.WriteString(cell.Render(open.Render(fmt.Sprintf("%d", c%10))))
	}
	b.WriteString("\n")

	for r, row := range grid {
		b.WriteString(index.Render(fmt.Sprintf("%d", r)))
		for _, t := range row {
			if t.Cleared {
				b.WriteString(cell.Render(open.Render(".")))
				continue
			}
			b.WriteString(cell.Render(styles[t.Symbol].Render(string(t.Symbol))))
		}
		if r < len(grid)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// countConnectablePairs counts every pair of identical active tiles that can
// be linked right now
func countConnectablePairs(board *engine.Board, rules engine.Rules) int {
	bySymbol := make(map[engine.Symbol][]engine.Coord)
	for _, c := range board.ActiveCoords() {
		t, _ := board.TileAt(c)
		bySymbol[t.Symbol] = append(bySymbol[t.Symbol], c)
	}

	count := 0
	for _, coords := range bySymbol {
		for i := 0; i < len(coords); i++ {
			for j := i + 1; j < len(coords); j++ {
				if _, ok := engine.FindConnectingPath(board, coords[i], coords[j], rules.MaxTurns); ok {
					count++
				}
			}
		}
	}
	return count
}

func runValidate(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.String("config-dir")
	manager, err := config.NewManager(dir)
	if err != nil {
		return err
	}

	invalid, err := validatePresets(cmd.Root().Writer, dir, manager)
	if err != nil {
		return err
	}
	if invalid > 0 {
		return fmt.Errorf("%d invalid preset(s)", invalid)
	}
	return nil
}

// pairCount is the number of tile pairs a deal of cfg holds
func pairCount(cfg *engine.GameConfig) int {
	if len(cfg.Layout) == 0 {
		return cfg.Rows * cfg.Cols / 2
	}
	grid, err := engine.ParseLayout(cfg.Layout)
	if err != nil {
		return 0
	}
	tiles := 0
	for _, row := range grid {
		for _, s := range row {
			if s != engine.EmptySymbol {
				tiles++
			}
		}
	}
	return tiles / 2
}

// validatePresets loads every preset file in dir and prints one row per file
func validatePresets(w io.Writer, dir string, manager *config.Manager) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"File", "Board", "Pairs", "Max Turns", "Status"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)

	invalid := 0
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".json" && ext != ".yaml" && ext != ".yml") {
			continue
		}

		cfg, err := manager.LoadConfig(entry.Name())
		if err != nil {
			invalid++
			table.Append([]string{entry.Name(), "-", "-", "-", "invalid: " + err.Error()})
			continue
		}
		table.Append([]string{
			entry.Name(),
			fmt.Sprintf("%dx%d", cfg.Rows, cfg.Cols),
			fmt.Sprintf("%d", pairCount(cfg)),
			fmt.Sprintf("%d", cfg.Rules.MaxTurns),
			"OK",
		})
	}

	table.Render()
	return invalid, nil
}
