/*
Copyright 2022 The Numaproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package util holds small helpers shared by the commands and the servers.
package util

import (
	"fmt"
	"os"
	"strconv"
)

// LookupEnvStringOr returns the value of env key, or defaultValue when it is unset or empty.
func LookupEnvStringOr(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return defaultValue
}

// LookupEnvBoolOr parses env key as a boolean. An unset or empty variable gives defaultValue, an
// unparsable one panics.
func LookupEnvBoolOr(key string, defaultValue bool) bool {
	valStr := LookupEnvStringOr(key, "")
	if valStr == "" {
		return defaultValue
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		panic(fmt.Errorf("invalid value for env variable %q, value %q", key, valStr))
	}
	return val
}
