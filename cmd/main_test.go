package main

import (
	"bytes"
	"flag"
	"os"
	"testing"
	"time"
)

// resetFlags resets the global flag.CommandLine to avoid "flag redefined" panic
func resetFlags() {
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)
}

// resetEnv clears env vars used by parseConfig
func resetEnv() {
	os.Clearenv()
}

func TestParseFlags_Default(t *testing.T) {
	resetFlags()
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"cmd"}
	configPath := parseFlags()
	expected := "config.env"

	if configPath != expected {
		t.Errorf("expected %s, got %s", expected, configPath)
	}
}

func TestParseFlags_Custom(t *testing.T) {
	resetFlags()
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"cmd", "-c", "myconfig.env"}
	configPath := parseFlags()
	expected := "myconfig.env"

	if configPath != expected {
		t.Errorf("expected %s, got %s", expected, configPath)
	}
}

// ----------------- Tests for printBuildInfo -----------------

func TestPrintBuildInfo_Output(t *testing.T) {
	// Capture stdout
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	// Set build info variables
	buildVersion = "v1.0.0"
	buildCommit = "abcd1234"
	buildDate = "2026-08-29"

	printBuildInfo()

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	output := buf.String()
	os.Stdout = oldStdout

	if !contains(output, "version v1.0.0") ||
		!contains(output, "commit abcd1234") ||
		!contains(output, "build 2026-08-29") {
		t.Errorf("printBuildInfo output unexpected:\n%s", output)
	}
}

// Helper function to check substring
func contains(s, substr string) bool {
	return bytes.Contains([]byte(s), []byte(substr))
}

func TestParseConfig_Defaults(t *testing.T) {
	resetEnv()

	appHost, appPort, logLevel,
		pgHost, pgPort, pgUser, pgPassword, pgDB,
		pgMaxOpenConns, pgMaxIdleConns,
		redisHost, redisPort, redisDB, redisPassword, idempotencyTTL,
		kafkaBrokers, alertTopic, transactionTopic,
		jwtSecret, jwtExp,
		retryMaxAttempts, retryBaseDelay, retryMaxDelay,
		err := parseConfig("nonexistent.env")

	if err != nil {
		t.Fatalf("parseConfig returned error: %v", err)
	}

	// Application
	if appHost != "localhost" || appPort != "8080" || logLevel != "info" {
		t.Errorf("unexpected app config: %v/%v/%v", appHost, appPort, logLevel)
	}

	// PostgreSQL
	if pgHost != "localhost" || pgPort != 5432 || pgUser != "user" || pgPassword != "password" || pgDB != "wallets" ||
		pgMaxOpenConns != 16 || pgMaxIdleConns != 8 {
		t.Errorf("unexpected postgres config")
	}

	// Redis
	if redisHost != "localhost" || redisPort != 6379 || redisDB != 0 || redisPassword != "" ||
		idempotencyTTL != 24*time.Hour {
		t.Errorf("unexpected redis config")
	}

	// Kafka
	if len(kafkaBrokers) != 1 || kafkaBrokers[0] != "localhost:9092" ||
		alertTopic != "wallet.low-balance-alerts" || transactionTopic != "wallet.transactions" {
		t.Errorf("unexpected kafka config: %v/%v/%v", kafkaBrokers, alertTopic, transactionTopic)
	}

	// JWT
	if jwtSecret != "my_super_secret_key" || jwtExp != time.Hour {
		t.Errorf("unexpected jwt config")
	}

	// Retry loop
	if retryMaxAttempts != 5 || retryBaseDelay != 20*time.Millisecond || retryMaxDelay != 500*time.Millisecond {
		t.Errorf("unexpected retry config: %v/%v/%v", retryMaxAttempts, retryBaseDelay, retryMaxDelay)
	}
}

func TestParseConfig_EnvOverrides(t *testing.T) {
	resetEnv()
	os.Setenv("APP_PORT", "9090")
	os.Setenv("POSTGRES_DB", "ledger")
	os.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	os.Setenv("RETRY_MAX_ATTEMPTS", "10")
	os.Setenv("IDEMPOTENCY_CACHE_TTL_SECOND", "60")
	defer resetEnv()

	_, appPort, _,
		_, _, _, _, pgDB,
		_, _,
		_, _, _, _, idempotencyTTL,
		kafkaBrokers, _, _,
		_, _,
		retryMaxAttempts, _, _,
		err := parseConfig("nonexistent.env")

	if err != nil {
		t.Fatalf("parseConfig returned error: %v", err)
	}
	if appPort != "9090" {
		t.Errorf("expected port 9090, got %s", appPort)
	}
	if pgDB != "ledger" {
		t.Errorf("expected db ledger, got %s", pgDB)
	}
	if len(kafkaBrokers) != 2 || kafkaBrokers[1] != "broker2:9092" {
		t.Errorf("unexpected brokers: %v", kafkaBrokers)
	}
	if retryMaxAttempts != 10 {
		t.Errorf("expected 10 attempts, got %d", retryMaxAttempts)
	}
	if idempotencyTTL != time.Minute {
		t.Errorf("expected 1m TTL, got %v", idempotencyTTL)
	}
}

func TestParseConfig_InvalidNumber(t *testing.T) {
	resetEnv()
	os.Setenv("POSTGRES_PORT", "not-a-number")
	defer resetEnv()

	_, _, _, _, _, _, _, _, _, _, _, _, _, _, _, _, _, _, _, _, _, _, _, err := parseConfig("nonexistent.env")
	if err == nil {
		t.Fatal("expected error for invalid POSTGRES_PORT")
	}
}
