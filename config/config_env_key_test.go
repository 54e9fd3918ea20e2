package config

import "testing"

func TestCanonicalizeEnvKey_UsesExistingCamelCaseKeys(t *testing.T) {
	existing := map[string]any{
		"storage": map[string]any{
			"inMemory":  false,
			"cacheSize": 1024,
		},
		"snapshot": map[string]any{
			"bucketURL": "",
		},
		"env": map[string]any{
			"serviceName": "addrstore",
			"log": map[string]any{
				"level": "info",
			},
		},
	}

	tests := []struct {
		envKey string
		want   string
	}{
		{envKey: "STORAGE_INMEMORY", want: "storage.inMemory"},
		{envKey: "STORAGE_CACHESIZE", want: "storage.cacheSize"},
		{envKey: "SNAPSHOT_BUCKETURL", want: "snapshot.bucketURL"},
		{envKey: "ENV_SERVICENAME", want: "env.serviceName"},
		{envKey: "ENV_LOG_LEVEL", want: "env.log.level"},
		{envKey: "NEW_FEATURE_FLAG", want: "new.feature.flag"},
	}

	for _, tt := range tests {
		t.Run(tt.envKey, func(t *testing.T) {
			if got := canonicalizeEnvKey(tt.envKey, existing); got != tt.want {
				t.Fatalf("canonicalizeEnvKey(%q) = %q, want %q", tt.envKey, got, tt.want)
			}
		})
	}
}
