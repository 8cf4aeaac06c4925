// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import "strings"

// Key builders. Project-scoped records embed the project ID so that every
// child collection is one contiguous prefix range.

func userKey(id string) []byte {
	return []byte("user/" + id)
}

func userEmailKey(email string) []byte {
	return []byte("useremail/" + strings.ToLower(email))
}

func sessionKey(token string) []byte {
	return []byte("session/" + token)
}

func projectKey(id string) []byte {
	return []byte("project/" + id)
}

func documentKey(projectID, id string) []byte {
	return []byte("document/" + projectID + "/" + id)
}

func entityKey(projectID, id string) []byte {
	return []byte("entity/" + projectID + "/" + id)
}

func factKey(projectID, id string) []byte {
	return []byte("fact/" + projectID + "/" + id)
}

func alertKey(projectID, id string) []byte {
	return []byte("alert/" + projectID + "/" + id)
}

func noteKey(projectID, id string) []byte {
	return []byte("note/" + projectID + "/" + id)
}

func documentPrefix(projectID string) []byte {
	return []byte("document/" + projectID + "/")
}

func entityPrefix(projectID string) []byte {
	return []byte("entity/" + projectID + "/")
}

func factPrefix(projectID string) []byte {
	return []byte("fact/" + projectID + "/")
}

func alertPrefix(projectID string) []byte {
	return []byte("alert/" + projectID + "/")
}

func notePrefix(projectID string) []byte {
	return []byte("note/" + projectID + "/")
}
