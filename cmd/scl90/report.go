package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"scl90-gate/internal/scoring"
)

type jsonReport struct {
	*scoring.Result
	Interpretation *scoring.Interpretation `json:"interpretation"`
}

func writeJSON(w io.Writer, result *scoring.Result, interp *scoring.Interpretation) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{Result: result, Interpretation: interp})
}

func writeReport(w io.Writer, result *scoring.Result, interp *scoring.Interpretation) error {
	fmt.Fprintf(w, "总分：%d  总均分：%.2f  阳性项目：%d  阴性项目：%d\n\n",
		result.TotalScore, result.AverageScore, result.PositiveItems, result.NegativeItems)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "因子\t题目\t得分\t均分\t")
	for _, d := range result.Dimensions {
		mark := ""
		if d.Elevated() {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s (%s)\t%d-%d\t%d\t%.2f\t%s\n", d.Name, d.Label, d.First, d.Last, d.Score, d.Average, mark)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%s\n", interp.Summary)
	if len(interp.Elevated) > 0 {
		fmt.Fprintln(w, "\n需要关注的因子：")
		for _, d := range interp.Elevated {
			fmt.Fprintf(w, "- %s：%s\n", d.Name, d.Description)
		}
	}
	_, err := fmt.Fprintln(w, "\n本结果仅供参考，不能替代专业诊断。")
	return err
}
