// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry wires OpenTelemetry tracing.
//
// Spans are opened by the completion and search adapters through the
// global tracer provider. Setup replaces that provider with an OTLP/HTTP
// exporter when an endpoint is configured.
package telemetry
