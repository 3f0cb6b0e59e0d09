// Package votes implements vote-to-skip for rooms.
//
// A room is either tracking no track or tracking one track with the set of guests who voted
// to skip it. Votes are counted per distinct voter and only for the track that is live when
// the vote arrives; any observed track change discards the set. State lives in process memory
// and is lost on restart.
//
// [Reporter] serves the polled current-song view and is where track changes are observed.
package votes
