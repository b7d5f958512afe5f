// Package spec contains the release specification model: SnapApp and the
// channel, feed, target and signature entities it owns.
//
// Values are immutable by convention. Use Clone to derive a modified copy;
// clones never share nested pointers or slices with the original.
// Validate checks an app in a fixed order and reports the first violation
// as a *ValidationError that names the app and the offending field.
package spec
