// Command mailcompact gzip-compresses Maildir messages in place.
//
//	mailcompact --dir /var/vmail
package main

import (
	"os"
)

func main() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}
