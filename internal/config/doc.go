// Package config provides configuration structures and utilities for
// perfumeharvest: request and politeness settings, the sites to harvest
// and report preferences.
package config
