package middleware

import tele "gopkg.in/telebot.v4"

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	// Check reports whether the sender currently holds admin rights.
	Check    func(userID int64) bool
	OnReject tele.HandlerFunc
}

// AdminGuard wraps handlers of admin-only commands, rejecting senders
// that fail the check.
func AdminGuard(opts AdminOptions) func(next tele.HandlerFunc) tele.HandlerFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		if opts.Check == nil {
			return next
		}
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil || !opts.Check(sender.ID) {
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}
