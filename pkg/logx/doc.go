package logx

// Package logx is a thin structured-logging facade over zerolog.
//
// Components accept a logx.Logger value instead of importing zerolog
// directly; the zero value and Nop() are safe no-op loggers, which keeps
// tests quiet without nil checks at call sites.
