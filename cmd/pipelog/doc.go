// Command pipelog exercises a logging pipeline from the command line.
//
// "pipelog run" starts a pipeline over console, file and zap sinks and
// drives it with concurrent producers. "pipelog config" writes, checks and
// displays pipeline configuration files.
package main
