// Package common holds the pieces shared by the console and the libraries: the logger
// factory (plugged into dragonboats logger facade, which every package uses through
// logger.GetLogger) and the console configuration.
package common
