// Package download saves documents fetched through the browser to disk.
//
// Manager.HandleDownload retries a bounded number of times with a fixed
// delay between attempts and only reports success once the written file's
// size has stopped changing.
package download
