// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package chat is the Discord adapter.

Bot opens the gateway with arikawa, registers the /poll slash command and
converts every command or button press into a models.Interaction before
handing it to a Dispatcher. Each interaction is acknowledged with a deferred
ephemeral response and answered with a follow-up, so replies are only ever
visible to the member who acted.

Bot also implements handlers.Messenger: posting, editing and deleting the
public poll message, and posting the final results.
*/
package chat
