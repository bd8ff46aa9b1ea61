// ABOUTME: ODAS sound source localization and tracking messages
// ABOUTME: JSON models, stream splitter and direction-of-arrival energy map
// Package tracking reads the JSON side channels ODAS emits next to the
// separated audio: SSL (localized potential sources with energy) and SST
// (tracked sources with id, tag and activity).
//
// ODAS writes one JSON object per hop back to back on a TCP socket.
// Splitter cuts that byte stream into objects, ParseSSL/ParseSST decode
// them, and EnergyMap accumulates SSL energy into azimuth bins for display.
package tracking
