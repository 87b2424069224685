package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		line, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line != "" {
			return line, nil
		}
		warn.Println("value is required")
	}
}

func promptOptional(label string) (string, error) {
	fmt.Printf("%s: ", label)
	line, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(label string) (string, error) {
	fmt.Printf("%s: ", label)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	password := strings.TrimSpace(string(raw))
	if password == "" {
		return "", fmt.Errorf("password is required")
	}
	return password, nil
}

func boolBit(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func intSlice(v any) []int {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]int, 0, len(raw))
	for _, item := range raw {
		f, ok := item.(float64)
		if !ok {
			return nil
		}
		out = append(out, int(f))
	}
	return out
}

func renderDashboard(out map[string]any) {
	renderUser(out["user"])
	if nw, ok := out["net_worth"].(float64); ok {
		accent.Printf("net worth: %d\n", int64(nw))
	}
	if prices, ok := out["prices"].(map[string]any); ok {
		renderPrices(prices)
	}
}

func renderUser(v any) {
	user, ok := v.(map[string]any)
	if !ok {
		return
	}
	accent.Printf("%v <%v>  lvl %v %q\n", user["name"], user["id"], user["level"], user["title"])
	neutral.Printf("  money=%v exp=%v toxicity=%v\n", num(user["money"]), num(user["exp"]), num(user["toxicity"]))
	if inv, ok := user["inventory"].(map[string]any); ok && len(inv) > 0 {
		neutral.Printf("  inventory: %s\n", countMap(inv))
	}
	if stocks, ok := user["stocks"].(map[string]any); ok && len(stocks) > 0 {
		neutral.Printf("  stocks: %s\n", countMap(stocks))
	}
}

func renderMarket(out map[string]any) {
	if prices, ok := out["prices"].(map[string]any); ok {
		renderPrices(prices)
	}
}

func renderPrices(prices map[string]any) {
	codes := make([]string, 0, len(prices))
	for code := range prices {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		neutral.Printf("  %-4s %8v\n", code, num(prices[code]))
	}
}

func renderHistory(out map[string]any) {
	entries, ok := out["history"].([]any)
	if !ok || len(entries) == 0 {
		printInfo("no history yet")
		return
	}
	for _, e := range entries {
		snap, ok := e.(map[string]any)
		if !ok {
			continue
		}
		label, _ := snap["label"].(string)
		prices, _ := snap["prices"].(map[string]any)
		neutral.Printf("%s  %s\n", label, countMap(prices))
	}
}

func renderShop(out map[string]any) {
	items, ok := out["items"].([]any)
	if !ok {
		return
	}
	for _, v := range items {
		it, ok := v.(map[string]any)
		if !ok {
			continue
		}
		neutral.Printf("  %-14s %6v  (%v %v)\n", it["name"], num(it["price"]), it["effect"], num(it["magnitude"]))
	}
}

func renderOutcome(v any) {
	out, ok := v.(map[string]any)
	if !ok {
		return
	}
	correct, _ := out["correct"].(bool)
	if correct {
		success.Printf("correct! +%d money, +%d exp\n", num(out["money_delta"]), num(out["exp_delta"]))
	} else {
		danger.Println("wrong answer")
	}
}

func countMap(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, num(m[k])))
	}
	return strings.Join(parts, " ")
}

func num(v any) int64 {
	f, ok := v.(float64)
	if !ok {
		return 0
	}
	return int64(f)
}
