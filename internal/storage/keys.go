package storage

import "fmt"

// Keys of values held in the Ephemeral store.
const (
	typingKeyFormat       = "conversation:%s:typing"
	lastActiveAtKeyFormat = "user:%s:lastActiveAt"
)

// Pub/sub topics. TypingTopic shares its string with TypingKey but the two
// are separate namespaces and must not be used interchangeably.
const (
	conversationTopicFormat = "conversation:%s"
	typingTopicFormat       = "conversation:%s:typing"
	inboxTopicFormat        = "conversations:user:%s"

	LastActiveAtTopic = "user:onLastActiveAtUpdate"
)

func TypingKey(conversationID string) string {
	return fmt.Sprintf(typingKeyFormat, conversationID)
}

func LastActiveAtKey(userID string) string {
	return fmt.Sprintf(lastActiveAtKeyFormat, userID)
}

func ConversationTopic(conversationID string) string {
	return fmt.Sprintf(conversationTopicFormat, conversationID)
}

func TypingTopic(conversationID string) string {
	return fmt.Sprintf(typingTopicFormat, conversationID)
}

func InboxTopic(userID string) string {
	return fmt.Sprintf(inboxTopicFormat, userID)
}
