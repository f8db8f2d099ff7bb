package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/vncsmyrnk/elections/internal/core/domain"
)

func printResult(w io.Writer, result *domain.ElectionResult) {
	fmt.Fprintf(w, "%s (%s)\n", result.Name, result.Type)
	fmt.Fprintf(w, "Online result: %s, announced: %t\n", result.OnlineResultStatus, result.Announced)
	fmt.Fprintf(w, "Eligible voters: %s online, %s onsite. Turnout %.2f%%\n\n",
		humanize.Comma(result.OnlineEligibleVoters),
		humanize.Comma(result.OnsiteEligibleVoters),
		result.Turnout,
	)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Rank", "No.", "Candidate", "Online", "Onsite", "Total", "%"})

	// Markdown layout
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")

	for _, c := range result.Candidates {
		table.Append([]string{
			fmt.Sprint(c.Rank),
			fmt.Sprint(c.Number),
			c.Name,
			humanize.Comma(c.Online),
			humanize.Comma(c.Onsite),
			humanize.Comma(c.Total),
			fmt.Sprintf("%.2f", c.Percentage),
		})
	}
	table.SetFooter([]string{"", "", "Total",
		humanize.Comma(result.OnlineVotes),
		humanize.Comma(result.OnsiteVotes),
		humanize.Comma(result.TotalVotes),
		"",
	})

	table.Render()
}
