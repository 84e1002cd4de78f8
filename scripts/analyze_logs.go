package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

type LogStats struct {
	TotalErrors        int
	AdminLogins        int
	AdminLoginFailures int
	SocialLogins       int
	CheckoutsCreated   int
	PaymentsCompleted  int
	PaymentsFailed     int
	RefundsIssued      int
	RefundFailures     int
	QuotesSubmitted    int
	BadSignatures      int
	RateLimited        int
	XSSAttempts        int
	CustomerActivity   map[string]int
	ErrorPatterns      map[string]int
}

var emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

func main() {
	date := flag.String("date", time.Now().Format("2006-01-02"), "day of the log files to read")
	logDir := flag.String("dir", "./logs", "directory the service writes its logs to")
	flag.Parse()

	stats := &LogStats{
		CustomerActivity: make(map[string]int),
		ErrorPatterns:    make(map[string]int),
	}

	analyzeErrorLogs(filepath.Join(*logDir, fmt.Sprintf("error-%s.log", *date)), stats)
	analyzeInfoLogs(filepath.Join(*logDir, fmt.Sprintf("info-%s.log", *date)), stats)

	printReport(*date, stats)
}

func scanLines(logFile string, fn func(line string)) {
	file, err := os.Open(logFile)
	if err != nil {
		fmt.Printf("Error opening log file %s: %v\n", logFile, err)
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		fn(scanner.Text())
	}
}

func analyzeErrorLogs(logFile string, stats *LogStats) {
	scanLines(logFile, func(line string) {
		stats.TotalErrors++

		switch {
		case strings.Contains(line, "Invalid password for admin"), strings.Contains(line, "Admin not found for email"):
			stats.AdminLoginFailures++
		case strings.Contains(line, "Webhook signature verification failed"):
			stats.BadSignatures++
		case strings.Contains(line, "Stripe refund failed"):
			stats.RefundFailures++
		case strings.Contains(line, "XSS detected"):
			stats.XSSAttempts++
		}

		extractErrorPattern(line, stats)
	})
}

func analyzeInfoLogs(logFile string, stats *LogStats) {
	scanLines(logFile, func(line string) {
		switch {
		case strings.Contains(line, "Admin login successful"):
			stats.AdminLogins++
		case strings.Contains(line, "signed in with"):
			stats.SocialLogins++
		case strings.Contains(line, "Checkout session") && strings.Contains(line, "created"):
			stats.CheckoutsCreated++
		case strings.Contains(line, "completed for"):
			stats.PaymentsCompleted++
			extractCustomer(line, stats)
		case strings.Contains(line, "Refunded") && strings.Contains(line, "of payment"):
			stats.RefundsIssued++
		case strings.Contains(line, "Quote") && strings.Contains(line, "submitted"):
			stats.QuotesSubmitted++
			extractCustomer(line, stats)
		case strings.Contains(line, "Rate limit exceeded"):
			stats.RateLimited++
		case strings.Contains(line, "WARN") && strings.Contains(line, "Payment") && strings.Contains(line, "failed"):
			stats.PaymentsFailed++
			extractCustomer(line, stats)
		}
	})
}

func extractCustomer(line string, stats *LogStats) {
	if email := emailRegex.FindString(line); email != "" {
		stats.CustomerActivity[strings.ToLower(email)]++
	}
}

// extractErrorPattern keeps the message text before the first colon so that
// errors differing only in ids are counted together
func extractErrorPattern(line string, stats *LogStats) {
	fields := strings.Split(line, "\t")
	msg := fields[len(fields)-1]
	if i := strings.Index(msg, ":"); i > 0 {
		msg = msg[:i]
	}
	msg = strings.TrimSpace(msg)
	if msg != "" {
		stats.ErrorPatterns[msg]++
	}
}

func printReport(date string, stats *LogStats) {
	fmt.Println("\n=== Log Analysis Report ===")
	fmt.Println("Logs of:", date, "| Generated:", time.Now().Format("2006-01-02 15:04:05"))

	fmt.Println("\n1. Authentication:")
	fmt.Printf("   Admin Logins: %d\n", stats.AdminLogins)
	fmt.Printf("   Failed Admin Logins: %d\n", stats.AdminLoginFailures)
	fmt.Printf("   Social Logins: %d\n", stats.SocialLogins)

	fmt.Println("\n2. Bookings and Payments:")
	fmt.Printf("   Quotes Submitted: %d\n", stats.QuotesSubmitted)
	fmt.Printf("   Checkouts Created: %d\n", stats.CheckoutsCreated)
	fmt.Printf("   Payments Completed: %d\n", stats.PaymentsCompleted)
	fmt.Printf("   Payments Failed: %d\n", stats.PaymentsFailed)
	fmt.Printf("   Refunds Issued: %d\n", stats.RefundsIssued)
	fmt.Printf("   Refund Failures: %d\n", stats.RefundFailures)

	fmt.Println("\n3. Security Incidents:")
	fmt.Printf("   Bad Webhook Signatures: %d\n", stats.BadSignatures)
	fmt.Printf("   Rate Limited Requests: %d\n", stats.RateLimited)
	fmt.Printf("   XSS Attempts: %d\n", stats.XSSAttempts)

	fmt.Println("\n4. Error Statistics:")
	fmt.Printf("   Total Errors: %d\n", stats.TotalErrors)

	fmt.Println("\n5. Most Active Customers:")
	printTop(stats.CustomerActivity, 5, "actions")

	fmt.Println("\n6. Most Common Errors:")
	printTop(stats.ErrorPatterns, 5, "occurrences")
}

func printTop(counts map[string]int, limit int, unit string) {
	type entry struct {
		Key   string
		Count int
	}
	var entries []entry
	for k, v := range counts {
		entries = append(entries, entry{k, v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count == entries[j].Count {
			return entries[i].Key < entries[j].Key
		}
		return entries[i].Count > entries[j].Count
	})

	if len(entries) == 0 {
		fmt.Println("   none")
		return
	}
	for i, e := range entries {
		if i >= limit {
			break
		}
		fmt.Printf("   %s: %d %s\n", e.Key, e.Count, unit)
	}
}
