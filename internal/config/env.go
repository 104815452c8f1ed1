package config

import "os"

func lookupEnv(envVar string) string {
	value, _ := os.LookupEnv(envVar)
	return value
}
